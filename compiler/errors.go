package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// LexError reports a character that starts no valid token.
type LexError struct {
	Pos  Position
	Char rune
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Pos, e.Msg, e.Char)
}

// ParseError reports a grammar violation at a token.
type ParseError struct {
	Pos   Position
	Token Token
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorPosition extracts the source position from a lex or parse error.
func ErrorPosition(err error) (Position, bool) {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return lexErr.Pos, true
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Pos, true
	}
	return Position{}, false
}

// Snippet renders err with a caret under the offending column and up to
// one line of context on each side:
//
//	parse error at 2:5: unbalanced parentheses: unexpected ')'
//
//	  1 | x = 2;
//	  2 | x + )
//	    |     ^
//
// Errors without a position are rendered by their message alone.
func Snippet(err error, src string) string {
	pos, ok := ErrorPosition(err)
	if !ok {
		return err.Error()
	}

	kind := "parse error"
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		kind = "lexical error"
	}

	var msg string
	switch e := err.(type) {
	case *LexError:
		msg = fmt.Sprintf("%s %q", e.Msg, e.Char)
	case *ParseError:
		msg = e.Msg
	default:
		msg = err.Error()
	}

	lines := strings.Split(src, "\n")
	line := clamp(pos.Line, 1, len(lines))
	width := len(fmt.Sprint(clamp(line+1, 1, len(lines))))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s: %s\n\n", kind, pos, msg)
	for n := line - 1; n <= line+1; n++ {
		if n < 1 || n > len(lines) {
			continue
		}
		text := strings.TrimRight(lines[n-1], "\r")
		fmt.Fprintf(&sb, "  %*d | %s\n", width, n, text)
		if n == line {
			col := clamp(pos.Column, 1, len(text)+1)
			fmt.Fprintf(&sb, "  %*s | %s^\n", width, "", strings.Repeat(" ", col-1))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
