package redis

import (
	"context"
	"sync"
	"time"

	"codegaming-service/internal/game"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Runners stay in a local in-memory map because they carry live timers;
//     Redis marks session liveness so operators can see active play across
//     instances.
//   - For true distribution you'd route players to the instance owning their
//     session (sticky sessions) or move runner state into Redis wholesale.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu      sync.RWMutex
	runners map[string]*game.Runner
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:  client,
		ttl:     ttl,
		runners: make(map[string]*game.Runner),
	}
}

func (s *SessionStore) Put(runner *game.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[runner.ID()] = runner
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(runner.ID()), string(runner.Mode().Type), s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "play:session:" + id
}
