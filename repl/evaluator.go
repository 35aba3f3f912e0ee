package repl

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/server"
	"github.com/chazu/tally/vm"
)

// Evaluator runs REPL input. Output printed by the code goes to the
// console the evaluator was built with.
type Evaluator interface {
	// Eval compiles and runs source. Lex and parse errors are returned as
	// *compiler.LexError / *compiler.ParseError.
	Eval(ctx context.Context, source string) error
	// Variables returns the current bindings.
	Variables(ctx context.Context) (map[string]int64, error)
	// Listing compiles source and returns its bytecode listing.
	Listing(ctx context.Context, source string) (string, error)
	Close(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Local evaluation
// ---------------------------------------------------------------------------

// Local evaluates on an in-process VM that prompts on the console.
type Local struct {
	grammar *compiler.Grammar
	vm      *vm.VM
}

// NewLocal creates a local evaluator. opts are applied after the console
// input and output, so they may override them.
func NewLocal(g *compiler.Grammar, console *Console, opts ...vm.Option) *Local {
	base := []vm.Option{
		vm.WithInput(console.Prompter()),
		vm.WithOutput(console.Out),
	}
	return &Local{
		grammar: g,
		vm:      vm.New(append(base, opts...)...),
	}
}

// Eval runs source. After a runtime failure the operand stack is emptied;
// variables bound before the failure are kept.
func (l *Local) Eval(ctx context.Context, source string) error {
	prog, err := compiler.Compile(l.grammar, source)
	if err != nil {
		return err
	}
	if err := l.vm.Eval(prog); err != nil {
		if stack := l.vm.Stack(); len(stack) > 0 {
			log.Debugf("discarding stack %v", stack)
		}
		l.vm.DiscardStack()
		return err
	}
	return nil
}

func (l *Local) Variables(ctx context.Context) (map[string]int64, error) {
	return l.vm.Variables(), nil
}

func (l *Local) Listing(ctx context.Context, source string) (string, error) {
	prog, err := compiler.Compile(l.grammar, source)
	if err != nil {
		return "", err
	}
	return prog.Listing(), nil
}

func (l *Local) Close(ctx context.Context) error {
	return nil
}

// ---------------------------------------------------------------------------
// Remote evaluation
// ---------------------------------------------------------------------------

// Remote evaluates on a tally server session. Variables the server
// reports as missing are asked for on the local console and the input is
// sent again with their values.
type Remote struct {
	client   *server.Client
	session  string
	console  *Console
	prompter *vm.Prompter
	vars     map[string]int64
}

// NewRemote opens a session on the server behind client.
func NewRemote(ctx context.Context, client *server.Client, console *Console) (*Remote, error) {
	id, err := client.CreateSession(ctx, "repl")
	if err != nil {
		return nil, fmt.Errorf("creating remote session: %w", err)
	}
	return &Remote{
		client:   client,
		session:  id,
		console:  console,
		prompter: console.Prompter(),
		vars:     map[string]int64{},
	}, nil
}

// SessionID returns the server session this evaluator runs on.
func (r *Remote) SessionID() string {
	return r.session
}

func (r *Remote) Eval(ctx context.Context, source string) error {
	req := &server.EvaluateRequest{SessionID: r.session, Source: source}
	for {
		resp, err := r.client.Evaluate(ctx, req)
		if err != nil {
			return err
		}

		if len(resp.Missing) > 0 {
			if req.Inputs == nil {
				req.Inputs = make(map[string]int64, len(resp.Missing))
			}
			for _, name := range resp.Missing {
				if _, asked := req.Inputs[name]; asked {
					return fmt.Errorf("server still reports %s as missing", name)
				}
				v, err := r.prompter.Request(name)
				if err != nil {
					return err
				}
				req.Inputs[name] = v
			}
			continue
		}

		for _, line := range resp.Output {
			fmt.Fprintln(r.console.Out, line)
		}
		if resp.Variables != nil {
			r.vars = resp.Variables
		} else {
			r.vars = map[string]int64{}
		}
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		return nil
	}
}

// Variables returns the bindings reported by the last evaluation.
func (r *Remote) Variables(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out, nil
}

func (r *Remote) Listing(ctx context.Context, source string) (string, error) {
	resp, err := r.client.Compile(ctx, source)
	if err != nil {
		return "", err
	}
	if len(resp.Diagnostics) > 0 {
		return "", errors.New(resp.Diagnostics[0].Snippet)
	}
	return resp.Listing, nil
}

// Close destroys the server session.
func (r *Remote) Close(ctx context.Context) error {
	return r.client.DestroySession(ctx, r.session)
}
