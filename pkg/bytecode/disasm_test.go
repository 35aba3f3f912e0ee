package bytecode

import (
	"slices"
	"strings"
	"testing"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Const(2), "CONST(2)"},
		{Load("x"), "LOAD(x)"},
		{Store("total"), "STORE(total)"},
		{Simple(OpAdd), "ADD"},
		{Simple(OpPrint), "PRINT"},
		{Simple(OpNop), "NOP"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestListing(t *testing.T) {
	p := NewProgram(Const(40), Const(2), Simple(OpAdd), Simple(OpPrint))

	want := "0000  CONST(40)\n0001  CONST(2)\n0002  ADD\n0003  PRINT\n"
	if got := p.Listing(); got != want {
		t.Errorf("Listing() =\n%s\nwant\n%s", got, want)
	}

	lines := p.Lines()
	if !slices.Equal(lines, []string{"CONST(40)", "CONST(2)", "ADD", "PRINT"}) {
		t.Errorf("Lines() = %v", lines)
	}
}

func TestDisassembleHeader(t *testing.T) {
	p := NewProgram(Const(2), Store("x"), Load("x"), Load("y"), Simple(OpMul), Simple(OpPrint))

	output := p.DisassembleWithName("demo")

	if !strings.Contains(output, "; === demo ===") {
		t.Error("Disassembly missing name header")
	}
	if !strings.Contains(output, "; Variables: x, y") {
		t.Errorf("Disassembly missing variables line:\n%s", output)
	}
	if !strings.Contains(output, "max stack depth 2") {
		t.Errorf("Disassembly missing stack depth:\n%s", output)
	}
}

func TestMaxStackDepth(t *testing.T) {
	// 1 + 2 * 3 ^ 4
	p := NewProgram(
		Const(1), Const(2), Const(3), Const(4),
		Simple(OpPow), Simple(OpMul), Simple(OpAdd), Simple(OpPrint),
	)
	if got := p.MaxStackDepth(); got != 4 {
		t.Errorf("MaxStackDepth() = %d, want 4", got)
	}
	if got := NewProgram().MaxStackDepth(); got != 0 {
		t.Errorf("empty MaxStackDepth() = %d, want 0", got)
	}
}

func TestProgramIsImmutable(t *testing.T) {
	src := []Instruction{Const(1), Simple(OpPrint)}
	p := NewProgram(src...)
	src[0] = Const(99)

	if p.At(0) != Const(1) {
		t.Errorf("NewProgram did not copy its input: At(0) = %s", p.At(0))
	}

	out := p.Instructions()
	out[1] = Simple(OpNop)
	if p.At(1) != Simple(OpPrint) {
		t.Errorf("Instructions() exposed internal storage: At(1) = %s", p.At(1))
	}
}

func TestConcat(t *testing.T) {
	a := NewProgram(Const(2), Const(2), Simple(OpAdd), Simple(OpPrint))
	b := NewProgram(Const(3), Const(4), Simple(OpMul), Simple(OpPrint))

	joined := Concat(a, b)
	if joined.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", joined.Len())
	}
	want := append(a.Instructions(), b.Instructions()...)
	if !slices.Equal(joined.Instructions(), want) {
		t.Errorf("Concat = %v, want %v", joined.Lines(), want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Instruction
		wantErr bool
	}{
		{"const", Const(7), false},
		{"load", Load("abc"), false},
		{"add", Simple(OpAdd), false},
		{"unknown opcode", Instruction{Op: 0x99}, true},
		{"load without name", Instruction{Op: OpLoad}, true},
		{"load uppercase", Load("X"), true},
		{"store digit", Store("x1"), true},
		{"add with name", Instruction{Op: OpAdd, Name: "x"}, true},
		{"const with name", Instruction{Op: OpConst, Name: "x"}, true},
		{"load with value", Instruction{Op: OpLoad, Name: "x", Value: 3}, true},
	}

	for _, tt := range tests {
		err := tt.in.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
