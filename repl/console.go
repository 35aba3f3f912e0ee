// Package repl implements the interactive tally console: it reads lines,
// evaluates them and prints results, prompting on the same console for
// variables that have no value yet.
package repl

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/chazu/tally/vm"
)

// Console is the line-oriented terminal a session runs on. The session's
// line reader and the variable prompter share In, so typed-ahead values
// are consumed in order.
type Console struct {
	In          *bufio.Reader
	Out         io.Writer
	Interactive bool // In is a terminal
}

// NewConsole wraps in and out. Interactive is set when in is a terminal.
func NewConsole(in io.Reader, out io.Writer) *Console {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Console{In: br, Out: out, Interactive: IsTerminal(in)}
}

// IsTerminal reports whether v is an *os.File attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ReadLine reads one line without its line ending. A last line without a
// newline is returned normally; io.EOF is returned only when nothing is
// left.
func (c *Console) ReadLine() (string, error) {
	line, err := c.In.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || line == "" {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompter returns an input provider asking on this console.
func (c *Console) Prompter() *vm.Prompter {
	return vm.NewPrompter(c.In, c.Out)
}
