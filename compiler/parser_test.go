package compiler

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, input string) []Stmt {
	t.Helper()
	stmts, err := Parse(DefaultGrammar(), input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return stmts
}

func TestParserPrecedenceAndAssociativity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"x", "x"},
		{"1 + 2 * 3 ^ 4", "(1 + (2 * (3 ^ 4)))"},
		{"2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"1 + 2 + 3 + 4", "(((1 + 2) + 3) + 4)"},
		{"1 * 2 * 3 * 4", "(((1 * 2) * 3) * 4)"},
		{"2 * 3 + 4", "((2 * 3) + 4)"},
		{"2 ^ 3 * 4", "((2 ^ 3) * 4)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"(2 ^ 3) ^ 2", "((2 ^ 3) ^ 2)"},
		{"((x))", "x"},
		{"a + b * c", "(a + (b * c))"},
		{"x = 1 + 2", "x = (1 + 2)"},
		{"total = a ^ b ^ c", "total = (a ^ (b ^ c))"},
	}

	for _, tc := range tests {
		stmts := mustParse(t, tc.input)
		if len(stmts) != 1 {
			t.Errorf("Parse(%q): got %d statements, want 1", tc.input, len(stmts))
			continue
		}
		if got := Format(stmts[0]); got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserStatementKinds(t *testing.T) {
	stmts := mustParse(t, "x = 2; y = 3; 2 * x + y")
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(stmts))
	}

	for i, name := range []string{"x", "y"} {
		assign, ok := stmts[i].(*Assign)
		if !ok {
			t.Fatalf("stmt[%d] = %T, want *Assign", i, stmts[i])
		}
		if assign.Name != name {
			t.Errorf("stmt[%d] name = %q, want %q", i, assign.Name, name)
		}
	}
	if _, ok := stmts[2].(*ExprStmt); !ok {
		t.Errorf("stmt[2] = %T, want *ExprStmt", stmts[2])
	}
}

func TestParserSeparators(t *testing.T) {
	tests := []struct {
		input string
		count int
	}{
		{"", 0},
		{"   # only a comment", 0},
		{";", 0},
		{"1", 1},
		{"1;", 1},
		{"1; 2", 2},
		{"1; 2;", 2},
		{"x = 1;\n# note\nx", 2},
	}

	for _, tc := range tests {
		stmts := mustParse(t, tc.input)
		if len(stmts) != tc.count {
			t.Errorf("Parse(%q): got %d statements, want %d", tc.input, len(stmts), tc.count)
		}
	}
}

func TestParserSpans(t *testing.T) {
	stmts := mustParse(t, "x = 1 + 2;\n  y * 3")

	first := stmts[0].Span()
	if first.Start.Column != 1 || first.End.Column != 10 {
		t.Errorf("assign span = %s-%s, want 1:1-1:10", first.Start, first.End)
	}

	second := stmts[1].Span()
	if second.Start.Line != 2 || second.Start.Column != 3 {
		t.Errorf("expr start = %s, want 2:3", second.Start)
	}
	if second.End.Line != 2 || second.End.Column != 8 {
		t.Errorf("expr end = %s, want 2:8", second.End)
	}

	op := stmts[1].(*ExprStmt).Expr.(*BinaryOp)
	if op.Left.Span().Start.Column != 3 || op.Right.Span().Start.Column != 7 {
		t.Errorf("operand spans = %v / %v", op.Left.Span(), op.Right.Span())
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input  string
		msg    string
		column int
	}{
		{"(1 + 2", "unbalanced parentheses: expected ')', got end of input", 7},
		{"(1 + 2 3", "unbalanced parentheses: expected ')', got number 3", 8},
		{"1 + 2)", "unbalanced parentheses: unexpected ')'", 6},
		{")", "unbalanced parentheses: unexpected ')'", 1},
		{"1 2", "expected ';' or end of input, got number 2", 3},
		{"x y", "expected ';' or end of input, got identifier y", 3},
		{"2x", "expected ';' or end of input, got identifier x", 2},
		{"3 * 2x + 1", "expected ';' or end of input, got identifier x", 6},
		{"1 +", "unexpected end of input, expected an expression", 4},
		{"1 + * 2", "unexpected '*', expected an expression", 5},
		{"= 3", "unexpected '=', expected an expression", 1},
		{"1 + 2 = 3", "invalid assignment target: (1 + 2)", 7},
		{"(x) = 3", "invalid assignment target: x", 5},
		{"x = y = 3", "invalid assignment target: y", 7},
		{"x =", "unexpected end of input, expected an expression", 4},
		{"1;;", "unexpected ';', expected an expression", 3},
		{";;", "expected end of input after ';', got ';'", 2},
		{"99999999999999999999", "integer literal 99999999999999999999 out of range", 1},
	}

	for _, tc := range tests {
		_, err := Parse(DefaultGrammar(), tc.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.input)
			continue
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Parse(%q): error %T (%v), want *ParseError", tc.input, err, err)
			continue
		}
		if parseErr.Msg != tc.msg {
			t.Errorf("Parse(%q): msg = %q, want %q", tc.input, parseErr.Msg, tc.msg)
		}
		if parseErr.Pos.Column != tc.column {
			t.Errorf("Parse(%q): column = %d, want %d", tc.input, parseErr.Pos.Column, tc.column)
		}
	}
}

func TestParserReportsLexErrors(t *testing.T) {
	tests := []string{
		"1 + $",
		"x = 1 $",
		"$",
		"Foo = 1",
		"(1 + 2) # ok\n  + 2 @ 3",
	}

	for _, input := range tests {
		_, err := Parse(DefaultGrammar(), input)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Parse(%q): error %T (%v), want *LexError", input, err, err)
		}
	}
}

func TestParserLexErrorAfterParseError(t *testing.T) {
	// The grammar fails on "2" before the lexer reaches "$".
	_, err := Parse(DefaultGrammar(), "1 2 $")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error %T (%v), want *ParseError", err, err)
	}
}

func TestGrammarValidation(t *testing.T) {
	tests := []struct {
		name  string
		specs []OperatorSpec
		want  string
	}{
		{
			"non-operator token",
			[]OperatorSpec{{Token: TokenSemi, Operator: OperatorAdd, Precedence: 1}},
			"is not an operator token",
		},
		{
			"zero precedence",
			[]OperatorSpec{{Token: TokenPlus, Operator: OperatorAdd}},
			"positive precedence",
		},
		{
			"duplicate",
			[]OperatorSpec{
				{Token: TokenPlus, Operator: OperatorAdd, Precedence: 1},
				{Token: TokenPlus, Operator: OperatorMul, Precedence: 2},
			},
			"declared twice",
		},
	}

	for _, tc := range tests {
		_, err := NewGrammar(tc.specs...)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want containing %q", tc.name, err, tc.want)
		}
	}
}

func TestCustomGrammar(t *testing.T) {
	// Flip the table: + binds tightest and is right associative.
	g, err := NewGrammar(
		OperatorSpec{Token: TokenPlus, Operator: OperatorAdd, Precedence: 3, Assoc: AssocRight},
		OperatorSpec{Token: TokenStar, Operator: OperatorMul, Precedence: 1, Assoc: AssocLeft},
	)
	if err != nil {
		t.Fatalf("NewGrammar: %v", err)
	}
	if len(g.ops) != 2 {
		t.Errorf("grammar has %d operators, want 2", len(g.ops))
	}

	stmts, err := Parse(g, "1 * 2 + 3 + 4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := Format(stmts[0]), "(1 * (2 + (3 + 4)))"; got != want {
		t.Errorf("Format = %s, want %s", got, want)
	}

	// ^ is not in this grammar, so it ends the statement.
	if _, err := Parse(g, "2 ^ 3"); err == nil {
		t.Error("expected error for operator missing from grammar")
	}
}

func TestDefaultGrammarShared(t *testing.T) {
	g := DefaultGrammar()
	done := make(chan string, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			stmts, err := Parse(g, "1 + 2 * 3 ^ 4")
			if err != nil {
				done <- err.Error()
				return
			}
			done <- Format(stmts[0])
		}()
	}
	for i := 0; i < cap(done); i++ {
		if got := <-done; got != "(1 + (2 * (3 ^ 4)))" {
			t.Errorf("concurrent parse = %s", got)
		}
	}
}
