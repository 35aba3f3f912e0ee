package bytecode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Program is an immutable, ordered instruction sequence. One Program may
// hold several top-level statements concatenated in source order.
type Program struct {
	code []Instruction
}

// NewProgram copies instrs into a new Program.
func NewProgram(instrs ...Instruction) Program {
	code := make([]Instruction, len(instrs))
	copy(code, instrs)
	return Program{code: code}
}

// Concat joins programs in order.
func Concat(progs ...Program) Program {
	n := 0
	for _, p := range progs {
		n += len(p.code)
	}
	code := make([]Instruction, 0, n)
	for _, p := range progs {
		code = append(code, p.code...)
	}
	return Program{code: code}
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.code)
}

// At returns the instruction at index i.
func (p Program) At(i int) Instruction {
	return p.code[i]
}

// Instructions returns a copy of the instruction sequence.
func (p Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.code))
	copy(out, p.code)
	return out
}

// Validate checks every instruction.
func (p Program) Validate() error {
	for i, in := range p.code {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

// Hash returns the hex SHA-256 of the program's canonical wire encoding.
func (p Program) Hash() (string, error) {
	data, err := Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
