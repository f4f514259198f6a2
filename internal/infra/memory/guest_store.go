package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"codegaming-service/internal/domain"
)

// GuestStore is an in-memory implementation of app.GuestRepository. Entries
// expire after ttl of registration; a cleanup loop reaps them hourly.
type GuestStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	byID     map[string]guestEntry
	byToken  map[string]string
	nickname map[string]string
}

type guestEntry struct {
	guest     domain.GuestSession
	expiresAt time.Time
}

func NewGuestStore(ttl time.Duration) *GuestStore {
	store := &GuestStore{
		ttl:      ttl,
		clock:    time.Now,
		byID:     make(map[string]guestEntry),
		byToken:  make(map[string]string),
		nickname: make(map[string]string),
	}
	go store.cleanupExpired()
	return store
}

func (s *GuestStore) Register(_ context.Context, guest domain.GuestSession) (domain.GuestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nicknameKey(guest.Nickname)
	if id, ok := s.nickname[key]; ok && s.aliveLocked(id) {
		return domain.GuestSession{}, domain.ErrNicknameTaken
	}

	s.byID[guest.ID] = guestEntry{guest: guest, expiresAt: s.clock().Add(s.ttl)}
	s.nickname[key] = guest.ID
	if guest.ClientToken != "" {
		s.byToken[guest.ClientToken] = guest.ID
	}
	return guest, nil
}

func (s *GuestStore) Get(_ context.Context, id string) (domain.GuestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok || entry.expiresAt.Before(s.clock()) {
		return domain.GuestSession{}, domain.ErrGuestNotFound
	}
	return entry.guest, nil
}

func (s *GuestStore) FindByClientToken(_ context.Context, token string) (domain.GuestSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return domain.GuestSession{}, false, nil
	}
	entry, ok := s.byID[id]
	if !ok || entry.expiresAt.Before(s.clock()) {
		return domain.GuestSession{}, false, nil
	}
	return entry.guest, true, nil
}

func (s *GuestStore) NicknameAvailable(_ context.Context, nickname string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.nickname[nicknameKey(nickname)]
	if !ok {
		return true, nil
	}
	return !s.aliveLocked(id), nil
}

func (s *GuestStore) aliveLocked(id string) bool {
	entry, ok := s.byID[id]
	return ok && entry.expiresAt.After(s.clock())
}

func (s *GuestStore) cleanupExpired() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := s.clock()
		for id, entry := range s.byID {
			if entry.expiresAt.Before(now) {
				delete(s.byID, id)
				delete(s.nickname, nicknameKey(entry.guest.Nickname))
				if entry.guest.ClientToken != "" {
					delete(s.byToken, entry.guest.ClientToken)
				}
			}
		}
		s.mu.Unlock()
	}
}

func nicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}
