// Package bytecode defines the instruction set executed by the tally VM.
//
// A Program is an ordered, immutable sequence of Instructions. Each
// Instruction is a fixed opcode plus at most one argument: a variable name
// for LOAD and STORE, an integer literal for CONST.
//
//	NOP      no-op
//	POP_TOP  discard top
//	LOAD     push value of name
//	STORE    pop value, bind name
//	CONST    push literal
//	PRINT    pop value, emit it
//	ADD      pop b, pop a, push a+b
//	MUL      pop b, pop a, push a*b
//	POW      pop b, pop a, push a^b
//
// Programs serialize to canonical CBOR (see Marshal) so they can be shipped
// between processes and hashed for caching.
package bytecode
