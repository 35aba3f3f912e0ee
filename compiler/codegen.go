package compiler

import (
	"fmt"

	"github.com/chazu/tally/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// Compiler compiles statements to instructions. A Compiler is cheap and
// holds only the instruction buffer for the statement being compiled.
type Compiler struct {
	code []bytecode.Instruction
}

// NewCompiler creates a new compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// emit appends one instruction.
func (c *Compiler) emit(in bytecode.Instruction) {
	c.code = append(c.code, in)
}

// CompileStatement compiles one statement. Assignments end in STORE and
// print nothing; bare expressions end in exactly one PRINT.
func (c *Compiler) CompileStatement(stmt Stmt) []bytecode.Instruction {
	c.code = nil

	switch s := stmt.(type) {
	case *Assign:
		c.compileExpr(s.Value)
		c.emit(bytecode.Store(s.Name))
	case *ExprStmt:
		c.compileExpr(s.Expr)
		c.emit(bytecode.Simple(bytecode.OpPrint))
	default:
		panic(fmt.Sprintf("compiler: unknown statement %T", stmt))
	}

	return c.code
}

// CompileProgram compiles statements and concatenates them in order.
func (c *Compiler) CompileProgram(stmts []Stmt) bytecode.Program {
	parts := make([]bytecode.Program, 0, len(stmts))
	for _, stmt := range stmts {
		parts = append(parts, bytecode.NewProgram(c.CompileStatement(stmt)...))
	}
	return bytecode.Concat(parts...)
}

// compileExpr compiles an expression, leaving its value on the stack.
func (c *Compiler) compileExpr(expr Expr) {
	switch e := expr.(type) {
	case *IntLiteral:
		c.emit(bytecode.Const(e.Value))
	case *Variable:
		c.emit(bytecode.Load(e.Name))
	case *BinaryOp:
		// Left before right: at run time POW pops the exponent first.
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.emit(bytecode.Simple(opcodeFor(e.Op)))
	default:
		panic(fmt.Sprintf("compiler: unknown expression %T", expr))
	}
}

// opcodeFor maps a binary operator to its opcode.
func opcodeFor(op BinaryOperator) bytecode.Opcode {
	switch op {
	case OperatorAdd:
		return bytecode.OpAdd
	case OperatorMul:
		return bytecode.OpMul
	case OperatorPow:
		return bytecode.OpPow
	}
	panic(fmt.Sprintf("compiler: no opcode for %s", op))
}

// ---------------------------------------------------------------------------
// Convenience functions
// ---------------------------------------------------------------------------

// Compile lexes, parses and compiles source with the given grammar.
func Compile(g *Grammar, source string) (bytecode.Program, error) {
	stmts, err := Parse(g, source)
	if err != nil {
		return bytecode.Program{}, err
	}
	return NewCompiler().CompileProgram(stmts), nil
}

// CompileStatements compiles source and returns one Program per statement,
// in source order, with the statement spans.
func CompileStatements(g *Grammar, source string) ([]bytecode.Program, []Span, error) {
	stmts, err := Parse(g, source)
	if err != nil {
		return nil, nil, err
	}
	c := NewCompiler()
	progs := make([]bytecode.Program, len(stmts))
	spans := make([]Span, len(stmts))
	for i, stmt := range stmts {
		progs[i] = bytecode.NewProgram(c.CompileStatement(stmt)...)
		spans[i] = stmt.Span()
	}
	return progs, spans, nil
}
