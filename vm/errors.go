package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/tally/pkg/bytecode"
)

// Causes carried by RuntimeError. Test with errors.Is.
var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrBadInput           = errors.New("input is not a valid integer")
	ErrMissingInput       = errors.New("no input for variable")
	ErrNegativeExponent   = errors.New("negative exponent")
	ErrUnbalancedStack    = errors.New("values left on stack")
)

// RuntimeError aborts one Eval call. Index is the offending instruction,
// or -1 when the failure was detected after the last instruction.
type RuntimeError struct {
	Index int
	Instr bytecode.Instruction
	Err   error
}

func (e *RuntimeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("runtime error at end of program: %v", e.Err)
	}
	return fmt.Sprintf("runtime error at %04d %s: %v", e.Index, e.Instr, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// MissingInputError names a variable an input provider could not supply.
type MissingInputError struct {
	Name string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%v %s", ErrMissingInput, e.Name)
}

// Is makes errors.Is(err, ErrMissingInput) hold.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

