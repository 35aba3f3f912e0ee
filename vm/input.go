package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Input providers
// ---------------------------------------------------------------------------

// InputProvider supplies values for variables that have never been bound.
// The VM calls Request at most once per name over its lifetime.
type InputProvider interface {
	Request(name string) (int64, error)
}

// InputFunc adapts a function to InputProvider.
type InputFunc func(name string) (int64, error)

func (f InputFunc) Request(name string) (int64, error) {
	return f(name)
}

// ConstInput answers every request with n.
func ConstInput(n int64) InputProvider {
	return InputFunc(func(string) (int64, error) {
		return n, nil
	})
}

// Bindings answers from a fixed map. Names not in the map fail with a
// *MissingInputError.
type Bindings map[string]int64

func (b Bindings) Request(name string) (int64, error) {
	if v, ok := b[name]; ok {
		return v, nil
	}
	return 0, &MissingInputError{Name: name}
}

// noInput is the provider of a VM built without WithInput.
var noInput = InputFunc(func(name string) (int64, error) {
	return 0, &MissingInputError{Name: name}
})

// ParseInput parses a provider's text answer as a base-10 integer.
func ParseInput(text string) (int64, error) {
	s := strings.TrimSpace(text)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadInput, s)
	}
	return n, nil
}

// Prompter asks for values on a console: it writes "value of <name>: "
// and reads one line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter. If r is already a *bufio.Reader it is
// used directly, so a REPL can share its line reader with the prompter.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Prompter{in: br, out: w}
}

func (p *Prompter) Request(name string) (int64, error) {
	if _, err := fmt.Fprintf(p.out, "value of %s: ", name); err != nil {
		return 0, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("reading value of %s: %w", name, io.ErrUnexpectedEOF)
		}
		return 0, fmt.Errorf("reading value of %s: %w", name, err)
	}
	return ParseInput(line)
}
