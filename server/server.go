// Package server exposes tally evaluation over Connect (HTTP) and the
// language server protocol.
//
// Each session owns one VM behind a dedicated worker goroutine, so
// evaluations on a session are serialized while sessions run in parallel.
// Messages travel as CBOR (see Codec).
package server

import (
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/vm"
)

var log = commonlog.GetLogger("tally.server")

// TallyServer serves the tally service on an HTTP mux.
type TallyServer struct {
	sessions *SessionStore
	programs *ProgramStore
	mux      *http.ServeMux
	http     *http.Server

	stopSweeper func()
}

// ServerOption configures a TallyServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	grammar       *compiler.Grammar
	trace         bool
	sweepInterval time.Duration
	sessionTTL    time.Duration
	programTTL    time.Duration
}

// WithGrammar sets the grammar used to compile source.
func WithGrammar(g *compiler.Grammar) ServerOption {
	return func(c *serverConfig) { c.grammar = g }
}

// WithTrace enables instruction tracing on every session VM.
func WithTrace(on bool) ServerOption {
	return func(c *serverConfig) { c.trace = on }
}

// WithSessionTTL destroys sessions idle for longer than ttl.
func WithSessionTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) { c.sessionTTL = ttl }
}

// WithProgramTTL drops cached programs unused for longer than ttl.
func WithProgramTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) { c.programTTL = ttl }
}

// withSweepInterval sets how often expired sessions and programs are
// looked for. By default it is half the shorter TTL, at most five minutes.
func withSweepInterval(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.sweepInterval = d }
}

func (c *serverConfig) interval() time.Duration {
	if c.sweepInterval > 0 {
		return c.sweepInterval
	}
	d := min(c.sessionTTL, c.programTTL) / 2
	return min(max(d, time.Millisecond), 5*time.Minute)
}

// New creates a TallyServer and registers its procedures.
func New(opts ...ServerOption) *TallyServer {
	cfg := &serverConfig{
		grammar:    compiler.DefaultGrammar(),
		sessionTTL: time.Hour,
		programTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sessions := NewSessionStore(func() *vm.VM {
		return vm.New(vm.WithTrace(cfg.trace))
	})
	programs := NewProgramStore()

	s := &TallyServer{
		sessions: sessions,
		programs: programs,
		mux:      http.NewServeMux(),
	}
	s.http = &http.Server{Handler: s.mux}

	sessionSvc := NewSessionService(sessions)
	evalSvc := NewEvalService(cfg.grammar, sessions, programs)

	codec := connect.WithCodec(Codec{})
	s.mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, sessionSvc.CreateSession, codec))
	s.mux.Handle(DestroySessionProcedure, connect.NewUnaryHandler(DestroySessionProcedure, sessionSvc.DestroySession, codec))
	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, evalSvc.Evaluate, codec))
	s.mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, evalSvc.Compile, codec))

	s.stopSweeper = startSweeper(cfg.interval(), func() {
		if n := sessions.Sweep(cfg.sessionTTL); n > 0 {
			log.Infof("swept %d idle sessions", n)
		}
		if n := programs.Sweep(cfg.programTTL); n > 0 {
			log.Debugf("swept %d cached programs", n)
		}
	})

	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *TallyServer) Handler() http.Handler {
	return s.mux
}

// Sessions returns the session store.
func (s *TallyServer) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves on addr ("host:port" or ":port") until Stop.
// It returns nil at once if Stop was already called.
func (s *TallyServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *TallyServer) Serve(ln net.Listener) error {
	log.Noticef("tally server listening on %s", ln.Addr())
	log.Noticef("  Connect (CBOR): http://%s%s", ln.Addr(), EvaluateProcedure)
	err := s.http.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts down the server and every session.
func (s *TallyServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.http.Close()
	s.sessions.DestroyAll()
}
