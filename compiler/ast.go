package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a point in the source. Line and Column count from 1.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span covers the source text of a node, End exclusive.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from two positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is any parse tree node.
type Node interface {
	Span() Span
	node()
}

// Expr is a node that leaves one value on the stack.
type Expr interface {
	Node
	expr()
}

// IntLiteral represents a non-negative integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// Variable reads a name, asking for its value if unbound.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// BinaryOperator identifies the arithmetic operation of a BinaryOp.
type BinaryOperator int

const (
	OperatorAdd BinaryOperator = iota
	OperatorMul
	OperatorPow
)

func (o BinaryOperator) String() string {
	switch o {
	case OperatorAdd:
		return "+"
	case OperatorMul:
		return "*"
	case OperatorPow:
		return "^"
	}
	return fmt.Sprintf("BinaryOperator(%d)", int(o))
}

// BinaryOp represents left op right.
type BinaryOp struct {
	SpanVal Span
	Op      BinaryOperator
	Left    Expr
	Right   Expr
}

func (n *BinaryOp) Span() Span { return n.SpanVal }
func (n *BinaryOp) node()      {}
func (n *BinaryOp) expr()      {}

// Stmt is one `;`-separated statement.
type Stmt interface {
	Node
	stmt()
}

// Assign binds the value of an expression to a name. It prints nothing.
type Assign struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// ExprStmt is a bare expression whose value is printed.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Format renders a node with every binary operation fully parenthesized,
// which makes grouping visible.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(n.Value, 10))
	case *Variable:
		sb.WriteString(n.Name)
	case *BinaryOp:
		sb.WriteByte('(')
		format(sb, n.Left)
		sb.WriteString(" " + n.Op.String() + " ")
		format(sb, n.Right)
		sb.WriteByte(')')
	case *Assign:
		sb.WriteString(n.Name + " = ")
		format(sb, n.Value)
	case *ExprStmt:
		format(sb, n.Expr)
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}
