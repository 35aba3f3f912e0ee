package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Each test builds its own stores; session VMs are cheap.
// ---------------------------------------------------------------------------

func newTestSessions(t *testing.T) *SessionStore {
	t.Helper()
	sessions := NewSessionStore(func() *vm.VM { return vm.New() })
	t.Cleanup(sessions.DestroyAll)
	return sessions
}

// newTestEvalService creates an EvalService and one session on it.
func newTestEvalService(t *testing.T) (*EvalService, *Session) {
	t.Helper()
	sessions := newTestSessions(t)
	svc := NewEvalService(compiler.DefaultGrammar(), sessions, NewProgramStore())
	return svc, sessions.Create("test")
}

// newTestServer starts a TallyServer behind httptest and returns a client
// for it.
func newTestServer(t *testing.T) (*TallyServer, *Client) {
	t.Helper()
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return srv, NewClient(ts.Client(), ts.URL)
}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

// wantCode fails the test unless err is a connect error with code.
func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Errorf("error code = %v, want %v (%v)", got, code, err)
	}
}
