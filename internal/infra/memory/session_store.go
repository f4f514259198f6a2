package memory

import (
	"sync"

	"codegaming-service/internal/game"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu      sync.RWMutex
	runners map[string]*game.Runner
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		runners: make(map[string]*game.Runner),
	}
}

func (s *SessionStore) Put(runner *game.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[runner.ID()] = runner
}

func (s *SessionStore) Get(id string) (*game.Runner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runner, ok := s.runners[id]
	return runner, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runners, id)
}
