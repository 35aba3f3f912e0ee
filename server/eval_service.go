package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/pkg/bytecode"
	"github.com/chazu/tally/vm"
)

// EvalService implements the Evaluate and Compile procedures.
type EvalService struct {
	grammar  *compiler.Grammar
	sessions *SessionStore
	programs *ProgramStore
}

// NewEvalService creates an EvalService.
func NewEvalService(grammar *compiler.Grammar, sessions *SessionStore, programs *ProgramStore) *EvalService {
	return &EvalService{
		grammar:  grammar,
		sessions: sessions,
		programs: programs,
	}
}

// Evaluate runs source, an encoded program or a stored program on a
// session's VM.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	msg := req.Msg
	if msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	session, ok := s.sessions.Get(msg.SessionID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", msg.SessionID))
	}
	for name := range msg.Inputs {
		if !bytecode.IsVariableName(name) {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid input name %q", name))
		}
	}

	prog, resp, err := s.program(msg)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return connect.NewResponse(resp), nil
	}

	result, err := session.Do(func(v *vm.VM) (any, error) {
		return evaluate(v, prog, msg.Inputs), nil
	})
	if err != nil {
		if errors.Is(err, ErrWorkerStopped) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q was destroyed", msg.SessionID))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := result.(*EvaluateResponse)
	if out.Error != "" {
		log.Infof("session %s: %s", session.ID, out.Error)
	}
	return connect.NewResponse(out), nil
}

// program resolves the request's code. A compile error is returned as a
// response carrying diagnostics; malformed requests as connect errors.
func (s *EvalService) program(msg *EvaluateRequest) (bytecode.Program, *EvaluateResponse, error) {
	set := 0
	for _, present := range []bool{msg.Source != "", len(msg.Program) > 0, msg.Hash != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return bytecode.Program{}, nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("exactly one of source, program or hash is required"))
	}

	switch {
	case msg.Source != "":
		prog, err := compiler.Compile(s.grammar, msg.Source)
		if err != nil {
			resp := &EvaluateResponse{Error: compiler.Snippet(err, msg.Source)}
			if d, ok := diagnose(err, msg.Source); ok {
				resp.Diagnostics = []Diagnostic{d}
			}
			return bytecode.Program{}, resp, nil
		}
		return prog, nil, nil

	case len(msg.Program) > 0:
		prog, err := bytecode.Unmarshal(msg.Program)
		if err != nil {
			return bytecode.Program{}, nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return prog, nil, nil
	}

	prog, ok := s.programs.Get(msg.Hash)
	if !ok {
		return bytecode.Program{}, nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("program %q not found", msg.Hash))
	}
	return prog, nil, nil
}

// evaluate runs prog with inputs answering unbound variables. If any name
// the program needs is neither bound nor in inputs, nothing runs and the
// names come back in Missing. Must be called on the session's worker.
func evaluate(v *vm.VM, prog bytecode.Program, inputs map[string]int64) *EvaluateResponse {
	var missing []string
	for _, name := range v.Unbound(prog) {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &EvaluateResponse{Missing: missing, Variables: v.Variables()}
	}

	var out bytes.Buffer
	v.SetOutput(&out)
	v.SetInput(vm.Bindings(inputs))
	defer func() {
		v.SetOutput(io.Discard)
		v.SetInput(nil)
	}()

	resp := &EvaluateResponse{}
	if err := v.Eval(prog); err != nil {
		v.DiscardStack()
		resp.Error = err.Error()
	}
	resp.Output = splitLines(out.String())
	resp.Variables = v.Variables()
	return resp
}

// Compile compiles source and stores the program for evaluation by hash.
func (s *EvalService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	source := req.Msg.Source

	prog, err := compiler.Compile(s.grammar, source)
	if err != nil {
		d, ok := diagnose(err, source)
		if !ok {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewResponse(&CompileResponse{Diagnostics: []Diagnostic{d}}), nil
	}

	data, err := bytecode.Marshal(prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	hash, err := s.programs.Put(prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&CompileResponse{
		Program: data,
		Hash:    hash,
		Listing: prog.Listing(),
	}), nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
