package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/tally/compiler"
)

// Procedure paths served by the tally service.
const (
	ServiceName = "tally.v1.TallyService"

	CreateSessionProcedure  = "/" + ServiceName + "/CreateSession"
	DestroySessionProcedure = "/" + ServiceName + "/DestroySession"
	EvaluateProcedure       = "/" + ServiceName + "/Evaluate"
	CompileProcedure        = "/" + ServiceName + "/Compile"
)

// ---------------------------------------------------------------------------
// Wire codec
// ---------------------------------------------------------------------------

// Codec is the connect.Codec carrying tally messages as CBOR. Both
// handlers and clients register it with connect.WithCodec.
type Codec struct{}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR dec mode: %v", err))
	}
	cborEnc, cborDec = em, dm
}

// Name returns "cbor"; Connect sends it as application/cbor.
func (Codec) Name() string { return "cbor" }

// Marshal encodes a message.
func (Codec) Marshal(msg any) ([]byte, error) {
	return cborEnc.Marshal(msg)
}

// Unmarshal decodes a message, rejecting unknown fields.
func (Codec) Unmarshal(data []byte, msg any) error {
	return cborDec.Unmarshal(data, msg)
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// CreateSessionRequest opens a session with a fresh VM.
type CreateSessionRequest struct {
	Name string `cbor:"name,omitempty" json:"name,omitempty"`
}

// CreateSessionResponse carries the new session's ID.
type CreateSessionResponse struct {
	SessionID string `cbor:"session_id" json:"session_id"`
}

// DestroySessionRequest closes a session and stops its VM.
type DestroySessionRequest struct {
	SessionID string `cbor:"session_id" json:"session_id"`
}

// DestroySessionResponse is empty.
type DestroySessionResponse struct{}

// EvaluateRequest runs code on a session's VM. Exactly one of Source,
// Program (CBOR-encoded, as returned by Compile) or Hash (of a program
// previously returned by Compile) must be set. Inputs answer variables the
// session has not bound yet.
type EvaluateRequest struct {
	SessionID string           `cbor:"session_id" json:"session_id"`
	Source    string           `cbor:"source,omitempty" json:"source,omitempty"`
	Program   []byte           `cbor:"program,omitempty" json:"program,omitempty"`
	Hash      string           `cbor:"hash,omitempty" json:"hash,omitempty"`
	Inputs    map[string]int64 `cbor:"inputs,omitempty" json:"inputs,omitempty"`
}

// EvaluateResponse reports what an evaluation printed and the session's
// variables afterwards. When Missing is non-empty nothing was executed:
// the caller must resend with those names in Inputs.
type EvaluateResponse struct {
	Output      []string         `cbor:"output,omitempty" json:"output,omitempty"`
	Variables   map[string]int64 `cbor:"variables,omitempty" json:"variables,omitempty"`
	Error       string           `cbor:"error,omitempty" json:"error,omitempty"`
	Missing     []string         `cbor:"missing,omitempty" json:"missing,omitempty"`
	Diagnostics []Diagnostic     `cbor:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// CompileRequest compiles source without running it.
type CompileRequest struct {
	Source string `cbor:"source" json:"source"`
}

// CompileResponse carries the compiled program, or diagnostics when the
// source does not compile.
type CompileResponse struct {
	Program     []byte       `cbor:"program,omitempty" json:"program,omitempty"`
	Hash        string       `cbor:"hash,omitempty" json:"hash,omitempty"`
	Listing     string       `cbor:"listing,omitempty" json:"listing,omitempty"`
	Diagnostics []Diagnostic `cbor:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// Diagnostic is a lexical or syntax error at a 1-based source position.
type Diagnostic struct {
	Kind    string `cbor:"kind" json:"kind"` // "lex" or "parse"
	Line    int    `cbor:"line" json:"line"`
	Column  int    `cbor:"column" json:"column"`
	Message string `cbor:"message" json:"message"`
	Snippet string `cbor:"snippet,omitempty" json:"snippet,omitempty"`
}

// diagnose converts a compile error into a Diagnostic. ok is false for
// errors without a source position.
func diagnose(err error, source string) (Diagnostic, bool) {
	pos, ok := compiler.ErrorPosition(err)
	if !ok {
		return Diagnostic{}, false
	}
	d := Diagnostic{
		Kind:    "parse",
		Line:    pos.Line,
		Column:  pos.Column,
		Snippet: compiler.Snippet(err, source),
	}
	switch e := err.(type) {
	case *compiler.LexError:
		d.Kind = "lex"
		d.Message = fmt.Sprintf("%s %q", e.Msg, e.Char)
	case *compiler.ParseError:
		d.Message = e.Msg
	default:
		d.Message = err.Error()
	}
	return d, true
}
