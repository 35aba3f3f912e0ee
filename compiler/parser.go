package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: precedence climbing over the grammar's operator table
// ---------------------------------------------------------------------------

// Parser parses tally source into statements. It stops at the first error.
type Parser struct {
	grammar   *Grammar
	lexer     *Lexer
	curToken  Token
	peekToken Token
	lexErr    error // pending lexical error behind a TokenIllegal
	lastEnd   Position
}

// NewParser creates a new parser for the given input.
func NewParser(g *Grammar, input string) *Parser {
	p := &Parser{
		grammar: g,
		lexer:   NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token. Once the lexer has failed, the
// illegal token is repeated so the grammar stops on it.
func (p *Parser) nextToken() {
	if p.curToken.Type != TokenEOF {
		p.lastEnd = endOf(p.curToken)
	}
	p.curToken = p.peekToken
	if p.lexErr != nil {
		return
	}
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.lexErr = err
	}
	p.peekToken = tok
}

// endOf returns the position just past a token.
func endOf(t Token) Position {
	end := t.Pos
	end.Offset += len(t.Literal)
	end.Column += len(t.Literal)
	return end
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// errorf builds a parse error at the current token. If the current token
// is the lexer's illegal token, the lexical error is returned instead.
func (p *Parser) errorf(format string, args ...interface{}) error {
	if p.curTokenIs(TokenIllegal) && p.lexErr != nil {
		return p.lexErr
	}
	return &ParseError{
		Pos:   p.curToken.Pos,
		Token: p.curToken,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses
//
//	program := (statement (";" statement)*)? ";"?
func (p *Parser) ParseProgram() ([]Stmt, error) {
	var stmts []Stmt

	if p.curTokenIs(TokenSemi) {
		p.nextToken()
		if !p.curTokenIs(TokenEOF) {
			return nil, p.errorf("expected end of input after ';', got %s", p.curToken.describe())
		}
		return stmts, nil
	}

	for !p.curTokenIs(TokenEOF) {
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		switch {
		case p.curTokenIs(TokenSemi):
			p.nextToken()
		case p.curTokenIs(TokenEOF):
		case p.curTokenIs(TokenRParen):
			return nil, p.errorf("unbalanced parentheses: unexpected ')'")
		default:
			return nil, p.errorf("expected ';' or end of input, got %s", p.curToken.describe())
		}
	}

	return stmts, nil
}

// ParseStatement parses
//
//	statement  := assignment | expr
//	assignment := IDENT "=" expr
func (p *Parser) ParseStatement() (Stmt, error) {
	start := p.curToken.Pos

	if p.curTokenIs(TokenIdent) && p.peekTokenIs(TokenEquals) {
		name := p.curToken.Literal
		p.nextToken() // IDENT
		p.nextToken() // =
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if p.curTokenIs(TokenEquals) {
			return nil, p.errorf("invalid assignment target: %s", Format(value))
		}
		return &Assign{SpanVal: MakeSpan(start, p.lastEnd), Name: name, Value: value}, nil
	}

	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if p.curTokenIs(TokenEquals) {
		return nil, p.errorf("invalid assignment target: %s", Format(expr))
	}
	return &ExprStmt{SpanVal: MakeSpan(start, p.lastEnd), Expr: expr}, nil
}

// ParseExpression parses a full expression.
func (p *Parser) ParseExpression() (Expr, error) {
	return p.parseBinary(1)
}

// parseBinary climbs precedence levels starting at minPrec. Left
// associative operators parse their right operand one level higher so
// that equal-precedence operators to the right are left for this loop.
func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for {
		spec, ok := p.grammar.Lookup(p.curToken.Type)
		if !ok || spec.Precedence < minPrec {
			return left, nil
		}
		p.nextToken()

		next := spec.Precedence + 1
		if spec.Assoc == AssocRight {
			next = spec.Precedence
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}

		left = &BinaryOp{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      spec.Operator,
			Left:    left,
			Right:   right,
		}
	}
}

// parseAtom parses
//
//	atom := NUMBER | IDENT | "(" expr ")"
func (p *Parser) parseAtom() (Expr, error) {
	switch p.curToken.Type {
	case TokenNumber:
		return p.parseInteger()

	case TokenIdent:
		tok := p.curToken
		p.nextToken()
		return &Variable{SpanVal: MakeSpan(tok.Pos, endOf(tok)), Name: tok.Literal}, nil

	case TokenLParen:
		return p.parseParenExpr()

	case TokenRParen:
		return nil, p.errorf("unbalanced parentheses: unexpected ')'")

	case TokenEOF:
		return nil, p.errorf("unexpected end of input, expected an expression")
	}

	return nil, p.errorf("unexpected %s, expected an expression", p.curToken.describe())
}

// parseInteger parses a decimal literal into an IntLiteral.
func (p *Parser) parseInteger() (Expr, error) {
	tok := p.curToken
	value, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		return nil, p.errorf("integer literal %s out of range", tok.Literal)
	}
	p.nextToken()
	return &IntLiteral{SpanVal: MakeSpan(tok.Pos, endOf(tok)), Value: value}, nil
}

// parseParenExpr parses ( expr ).
func (p *Parser) parseParenExpr() (Expr, error) {
	p.nextToken() // consume (

	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenRParen) {
		return nil, p.errorf("unbalanced parentheses: expected ')', got %s", p.curToken.describe())
	}
	p.nextToken()

	return expr, nil
}

// Parse parses a complete program with the given grammar.
func Parse(g *Grammar, source string) ([]Stmt, error) {
	return NewParser(g, source).ParseProgram()
}
