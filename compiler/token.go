package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the tally lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenNumber // 42
	TokenIdent  // x, total

	// Operators
	TokenPlus   // +
	TokenStar   // *
	TokenCaret  // ^
	TokenEquals // =

	// Delimiters
	TokenSemi   // ;
	TokenLParen // (
	TokenRParen // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenIllegal: "ILLEGAL",
	TokenNumber:  "NUMBER",
	TokenIdent:   "IDENT",
	TokenPlus:    "+",
	TokenStar:    "*",
	TokenCaret:   "^",
	TokenEquals:  "=",
	TokenSemi:    ";",
	TokenLParen:  "(",
	TokenRParen:  ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNumber, TokenIdent:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return fmt.Sprintf("%q", t.Literal)
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenNumber:
		return "number " + t.Literal
	case TokenIdent:
		return "identifier " + t.Literal
	}
	return fmt.Sprintf("'%s'", t.Literal)
}

// singleCharTokens maps one-character operators and delimiters to their types.
var singleCharTokens = map[rune]TokenType{
	'+': TokenPlus,
	'*': TokenStar,
	'^': TokenCaret,
	'=': TokenEquals,
	';': TokenSemi,
	'(': TokenLParen,
	')': TokenRParen,
}
