package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tally/compiler"
)

var log = commonlog.GetLogger("tally.repl")

// Config controls the session's surface.
type Config struct {
	Prompt string
	Exit   string // a line equal to this, after trimming, ends the session
	Banner bool   // print a greeting on interactive consoles
}

// DefaultConfig returns the stock prompt and exit keyword.
func DefaultConfig() Config {
	return Config{Prompt: ">>> ", Exit: "exit", Banner: true}
}

// Session is a read-eval-print loop over one console.
type Session struct {
	cfg     Config
	console *Console
	eval    Evaluator
}

// NewSession creates a session evaluating with eval. An empty Prompt or
// Exit takes the DefaultConfig value.
func NewSession(cfg Config, console *Console, eval Evaluator) *Session {
	def := DefaultConfig()
	if cfg.Prompt == "" {
		cfg.Prompt = def.Prompt
	}
	if cfg.Exit == "" {
		cfg.Exit = def.Exit
	}
	return &Session{cfg: cfg, console: console, eval: eval}
}

// Run reads and evaluates lines until the exit keyword, end of input or
// ctx is done. Errors in the input are printed and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	out := s.console.Out
	if s.cfg.Banner && s.console.Interactive {
		fmt.Fprintf(out, "tally REPL (type '%s' to quit, ':help' for commands)\n\n", s.cfg.Exit)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, s.cfg.Prompt)
		line, err := s.console.ReadLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == s.cfg.Exit:
			return nil
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, ":"):
			s.command(ctx, trimmed)
		default:
			s.evalLine(ctx, line)
		}
	}
}

func (s *Session) evalLine(ctx context.Context, line string) {
	if err := s.eval.Eval(ctx, line); err != nil {
		log.Debugf("eval %q: %v", line, err)
		fmt.Fprintln(s.console.Out, compiler.Snippet(err, line))
	}
}

// command handles REPL meta-commands.
func (s *Session) command(ctx context.Context, line string) {
	out := s.console.Out
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :vars             Show bound variables")
		fmt.Fprintln(out, "  :dis <source>     Show the bytecode for source")
		fmt.Fprintf(out, "  %-17s Exit REPL\n", s.cfg.Exit)
	case ":vars":
		vars, err := s.eval.Variables(ctx)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		if len(vars) == 0 {
			fmt.Fprintln(out, "(no variables)")
			return
		}
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s = %d\n", name, vars[name])
		}
	case ":dis":
		if arg == "" {
			fmt.Fprintln(out, "usage: :dis <source>")
			return
		}
		listing, err := s.eval.Listing(ctx, arg)
		if err != nil {
			fmt.Fprintln(out, compiler.Snippet(err, arg))
			return
		}
		fmt.Fprint(out, listing)
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}
