package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop    Opcode = 0x00 // No operation
	OpPopTop Opcode = 0x01 // Discard top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst Opcode = 0x10 // Push integer literal: CONST(n)

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpLoad  Opcode = 0x20 // Push variable, asking the input provider if unbound: LOAD(name)
	OpStore Opcode = 0x21 // Pop and bind variable: STORE(name)

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop b, pop a, push a+b
	OpMul Opcode = 0x51 // Pop b, pop a, push a*b
	OpPow Opcode = 0x52 // Pop b (exponent), pop a (base), push a^b

	// ========================================================================
	// Output (0x70-0x7F)
	// ========================================================================

	OpPrint Opcode = 0x70 // Pop and emit as a decimal line
)

// ArgKind describes the argument an opcode carries.
type ArgKind uint8

const (
	ArgNone ArgKind = iota // no argument
	ArgName                // variable name
	ArgInt                 // integer literal
)

func (k ArgKind) String() string {
	switch k {
	case ArgNone:
		return "none"
	case ArgName:
		return "name"
	case ArgInt:
		return "int"
	}
	return fmt.Sprintf("ArgKind(%d)", uint8(k))
}

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string  // Human-readable name
	StackPop  int     // How many values popped from stack
	StackPush int     // How many values pushed to stack
	Arg       ArgKind // Argument carried by the instruction
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:    {"NOP", 0, 0, ArgNone},
	OpPopTop: {"POP_TOP", 1, 0, ArgNone},

	OpConst: {"CONST", 0, 1, ArgInt},

	OpLoad:  {"LOAD", 0, 1, ArgName},
	OpStore: {"STORE", 1, 0, ArgName},

	OpAdd: {"ADD", 2, 1, ArgNone},
	OpMul: {"MUL", 2, 1, ArgNone},
	OpPow: {"POW", 2, 1, ArgNone},

	OpPrint: {"PRINT", 1, 0, ArgNone},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// IsValid reports whether op is a defined opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsArithmetic returns true for the binary arithmetic opcodes.
func (op Opcode) IsArithmetic() bool {
	return op >= OpAdd && op <= OpPow
}
