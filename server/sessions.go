package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/tally/vm"
)

// Session is one client's evaluation context: a VM whose variables persist
// across Evaluate calls, served by its own worker.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	worker   *VMWorker
	mu       sync.Mutex
	lastUsed time.Time
}

// Do runs fn on the session's VM goroutine.
func (s *Session) Do(fn func(*vm.VM) (any, error)) (any, error) {
	s.touch()
	return s.worker.Do(fn)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed.Before(cutoff)
}

// SessionStore manages sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newVM    func() *vm.VM
}

// NewSessionStore creates a session store. newVM builds the VM for each
// new session.
func NewSessionStore(newVM func() *vm.VM) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		newVM:    newVM,
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	now := time.Now()
	session := &Session{
		ID:       uuid.NewString(),
		Name:     name,
		Created:  now,
		worker:   NewVMWorker(s.newVM()),
		lastUsed: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Infof("session %s created (%q)", session.ID, name)
	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Destroy removes a session and stops its worker. It reports whether the
// session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	session.worker.Stop()
	log.Infof("session %s destroyed", id)
	return true
}

// Sweep destroys sessions idle for longer than ttl.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.RLock()
	var idle []string
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if s.Destroy(id) {
			removed++
		}
	}
	return removed
}

// DestroyAll stops every session.
func (s *SessionStore) DestroyAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Destroy(id)
	}
}
