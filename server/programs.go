package server

import (
	"sync"
	"time"

	"github.com/chazu/tally/pkg/bytecode"
)

// cachedProgram is a compiled program kept for evaluation by hash.
type cachedProgram struct {
	program  bytecode.Program
	created  time.Time
	lastUsed time.Time
}

// ProgramStore maps program hashes to compiled programs, so a client can
// compile once and evaluate by hash on any session.
type ProgramStore struct {
	mu       sync.Mutex
	programs map[string]*cachedProgram
}

// NewProgramStore creates an empty program store.
func NewProgramStore() *ProgramStore {
	return &ProgramStore{programs: make(map[string]*cachedProgram)}
}

// Put stores a program under its hash and returns the hash.
func (s *ProgramStore) Put(p bytecode.Program) (string, error) {
	hash, err := p.Hash()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if cp, ok := s.programs[hash]; ok {
		cp.lastUsed = now
		return hash, nil
	}
	s.programs[hash] = &cachedProgram{program: p, created: now, lastUsed: now}
	return hash, nil
}

// Get retrieves a program by hash.
func (s *ProgramStore) Get(hash string) (bytecode.Program, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.programs[hash]
	if !ok {
		return bytecode.Program{}, false
	}
	cp.lastUsed = time.Now()
	return cp.program, true
}

// Len returns the number of stored programs.
func (s *ProgramStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.programs)
}

// Sweep removes programs that haven't been used within the TTL.
func (s *ProgramStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for hash, cp := range s.programs {
		if cp.lastUsed.Before(cutoff) {
			delete(s.programs, hash)
			removed++
		}
	}
	return removed
}

// startSweeper runs sweep every interval in the background.
// Returns a stop function.
func startSweeper(interval time.Duration, sweep func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
