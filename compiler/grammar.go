package compiler

import "fmt"

// Associativity of a binary operator.
type Associativity int

const (
	AssocLeft Associativity = iota
	AssocRight
)

func (a Associativity) String() string {
	if a == AssocRight {
		return "right"
	}
	return "left"
}

// OperatorSpec describes one binary operator of the grammar.
type OperatorSpec struct {
	Token      TokenType
	Operator   BinaryOperator
	Precedence int // higher binds tighter; must be > 0
	Assoc      Associativity
}

// Grammar is the operator table driving precedence climbing. It is built
// once and never modified, so one value can be shared by any number of
// concurrent parses.
type Grammar struct {
	ops map[TokenType]OperatorSpec
}

// NewGrammar builds a Grammar from operator specs.
func NewGrammar(specs ...OperatorSpec) (*Grammar, error) {
	g := &Grammar{ops: make(map[TokenType]OperatorSpec, len(specs))}
	for _, spec := range specs {
		switch spec.Token {
		case TokenPlus, TokenStar, TokenCaret:
		default:
			return nil, fmt.Errorf("grammar: %s is not an operator token", spec.Token)
		}
		if spec.Precedence <= 0 {
			return nil, fmt.Errorf("grammar: operator %s needs a positive precedence", spec.Token)
		}
		if _, dup := g.ops[spec.Token]; dup {
			return nil, fmt.Errorf("grammar: operator %s declared twice", spec.Token)
		}
		g.ops[spec.Token] = spec
	}
	return g, nil
}

// DefaultGrammar returns the tally grammar, lowest to highest precedence:
//
//	expr  := expr "+" term | term      (left)
//	term  := term "*" power | power    (left)
//	power := atom "^" power | atom     (right)
func DefaultGrammar() *Grammar {
	g, err := NewGrammar(
		OperatorSpec{Token: TokenPlus, Operator: OperatorAdd, Precedence: 1, Assoc: AssocLeft},
		OperatorSpec{Token: TokenStar, Operator: OperatorMul, Precedence: 2, Assoc: AssocLeft},
		OperatorSpec{Token: TokenCaret, Operator: OperatorPow, Precedence: 3, Assoc: AssocRight},
	)
	if err != nil {
		panic(err)
	}
	return g
}

// Lookup returns the operator spec for a token, if it is a binary operator.
func (g *Grammar) Lookup(t TokenType) (OperatorSpec, bool) {
	spec, ok := g.ops[t]
	return spec, ok
}
