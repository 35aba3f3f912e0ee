package bytecode

import (
	"strings"
	"testing"
)

func TestOpcodesHaveMetadata(t *testing.T) {
	ops := []Opcode{OpNop, OpPopTop, OpLoad, OpStore, OpConst, OpPrint, OpAdd, OpMul, OpPow}
	for _, op := range ops {
		info := GetOpcodeInfo(op)
		if !op.IsValid() || info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
	if len(opcodeInfoTable) != len(ops) {
		t.Errorf("opcode table has %d entries, want %d", len(opcodeInfoTable), len(ops))
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpPopTop, "POP_TOP"},
		{OpLoad, "LOAD"},
		{OpStore, "STORE"},
		{OpConst, "CONST"},
		{OpPrint, "PRINT"},
		{OpAdd, "ADD"},
		{OpMul, "MUL"},
		{OpPow, "POW"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.IsValid() {
		t.Error("0xEE should not be valid")
	}
}

func TestOpcodeStackEffects(t *testing.T) {
	tests := []struct {
		op        Opcode
		pop, push int
		arg       ArgKind
	}{
		{OpNop, 0, 0, ArgNone},
		{OpPopTop, 1, 0, ArgNone},
		{OpLoad, 0, 1, ArgName},
		{OpStore, 1, 0, ArgName},
		{OpConst, 0, 1, ArgInt},
		{OpPrint, 1, 0, ArgNone},
		{OpAdd, 2, 1, ArgNone},
		{OpMul, 2, 1, ArgNone},
		{OpPow, 2, 1, ArgNone},
	}

	for _, tt := range tests {
		info := GetOpcodeInfo(tt.op)
		if info.StackPop != tt.pop || info.StackPush != tt.push {
			t.Errorf("%s stack effect = -%d/+%d, want -%d/+%d", tt.op, info.StackPop, info.StackPush, tt.pop, tt.push)
		}
		if info.Arg != tt.arg {
			t.Errorf("%s arg = %s, want %s", tt.op, info.Arg, tt.arg)
		}
	}
}

func TestOpcodeIsArithmetic(t *testing.T) {
	for _, op := range []Opcode{OpAdd, OpMul, OpPow} {
		if !op.IsArithmetic() {
			t.Errorf("%s.IsArithmetic() = false, want true", op)
		}
	}
	for _, op := range []Opcode{OpNop, OpConst, OpLoad, OpPrint} {
		if op.IsArithmetic() {
			t.Errorf("%s.IsArithmetic() = true, want false", op)
		}
	}
}
