package bytecode

import (
	"fmt"
	"strconv"
)

// Instruction is a single opcode with its optional argument.
// Name is set for LOAD/STORE, Value for CONST; both are zero otherwise.
type Instruction struct {
	_ struct{} `cbor:",toarray"`

	Op    Opcode
	Name  string
	Value int64
}

// Simple returns an argument-less instruction.
func Simple(op Opcode) Instruction {
	return Instruction{Op: op}
}

// Const returns CONST(n).
func Const(n int64) Instruction {
	return Instruction{Op: OpConst, Value: n}
}

// Load returns LOAD(name).
func Load(name string) Instruction {
	return Instruction{Op: OpLoad, Name: name}
}

// Store returns STORE(name).
func Store(name string) Instruction {
	return Instruction{Op: OpStore, Name: name}
}

// String renders the instruction as NAME or NAME(arg).
func (in Instruction) String() string {
	info := GetOpcodeInfo(in.Op)
	switch info.Arg {
	case ArgName:
		return info.Name + "(" + in.Name + ")"
	case ArgInt:
		return info.Name + "(" + strconv.FormatInt(in.Value, 10) + ")"
	}
	return info.Name
}

// Validate checks that the opcode is defined and that the argument matches
// the opcode's argument kind.
func (in Instruction) Validate() error {
	if !in.Op.IsValid() {
		return fmt.Errorf("invalid opcode 0x%02X", byte(in.Op))
	}
	switch GetOpcodeInfo(in.Op).Arg {
	case ArgNone:
		if in.Name != "" || in.Value != 0 {
			return fmt.Errorf("%s takes no argument", in.Op)
		}
	case ArgName:
		if !IsVariableName(in.Name) {
			return fmt.Errorf("%s: invalid variable name %q", in.Op, in.Name)
		}
		if in.Value != 0 {
			return fmt.Errorf("%s takes a name, not an integer", in.Op)
		}
	case ArgInt:
		if in.Name != "" {
			return fmt.Errorf("%s takes an integer, not a name", in.Op)
		}
	}
	return nil
}

// IsVariableName reports whether s matches [a-z]+.
func IsVariableName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
