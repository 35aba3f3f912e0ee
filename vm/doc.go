// Package vm implements the tally stack machine.
//
// A VM holds an operand stack of int64 values and a variable store. Eval
// runs a bytecode.Program instruction by instruction; LOAD of a name that
// was never stored asks the VM's InputProvider once and binds the answer.
// PRINT writes the popped value and a newline to the VM's output.
package vm
