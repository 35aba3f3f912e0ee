package compiler

import (
	"unicode"
	"unicode/utf8"
)

const eof rune = -1

// Lexer tokenizes tally source code. Tokens are produced on demand by
// NextToken; the lexer cannot be rewound.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, eof at end
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer returns a lexer positioned at the first character of input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.col++

	if l.readPos >= len(l.input) {
		l.ch = eof
		l.pos = len(l.input)
		l.readPos = len(l.input)
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// NextToken returns the next token. At end of input it keeps returning
// TokenEOF. On an unrecognized character it returns a TokenIllegal token
// together with a *LexError.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == eof:
		return Token{Type: TokenEOF, Pos: pos}, nil

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLower(l.ch):
		return l.readIdentifier(pos)
	}

	if typ, ok := singleCharTokens[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: typ, Literal: lit, Pos: pos}, nil
	}

	return l.illegal(pos, "unexpected character")
}

// illegal builds the error token for the current character without consuming it.
func (l *Lexer) illegal(pos Position, msg string) (Token, error) {
	ch := l.ch
	return Token{Type: TokenIllegal, Literal: string(ch), Pos: pos},
		&LexError{Pos: pos, Char: ch, Msg: msg}
}

// skipWhitespaceAndComments skips whitespace and # line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch != eof && unicode.IsSpace(l.ch) {
			l.readChar()
		}

		if l.ch != '#' {
			return
		}

		// Comment runs to end of line; the terminator goes with it.
		for l.ch != '\n' && l.ch != eof {
			l.readChar()
		}
		if l.ch == '\n' {
			l.readChar()
		}
	}
}

// readNumber reads a run of decimal digits.
func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}, nil
}

// readIdentifier reads a run of lowercase ASCII letters.
func (l *Lexer) readIdentifier(pos Position) (Token, error) {
	start := l.pos
	for isLower(l.ch) {
		l.readChar()
	}
	if isWordChar(l.ch) {
		return l.illegal(l.position(), "invalid character in identifier")
	}
	return Token{Type: TokenIdent, Literal: l.input[start:l.pos], Pos: pos}, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// isWordChar reports characters that may not directly follow an
// identifier: they would make it a different, unsupported identifier shape.
// A letter after a number starts a new token; the parser rejects the pair.
func isWordChar(r rune) bool {
	return r == '_' || isDigit(r) || unicode.IsLetter(r)
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
// It stops at the first lexical error.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
