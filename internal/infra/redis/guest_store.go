package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"codegaming-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// GuestStore keeps guest sessions in Redis with a TTL, so nicknames free up
// on their own when a guest stops playing.
// Keys:
//
//	guest:{id}         -> session JSON
//	guest:nick:{name}  -> id (nickname reservation)
//	guest:token:{tok}  -> id (per-tab token reuse)
type GuestStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestStore(client *redis.Client, ttl time.Duration) *GuestStore {
	return &GuestStore{client: client, ttl: ttl}
}

func (s *GuestStore) Register(ctx context.Context, guest domain.GuestSession) (domain.GuestSession, error) {
	nickKey := s.nickKey(guest.Nickname)
	ok, err := s.client.SetNX(ctx, nickKey, guest.ID, s.ttl).Result()
	if err != nil {
		return domain.GuestSession{}, fmt.Errorf("reserve nickname: %w", err)
	}
	if !ok {
		return domain.GuestSession{}, domain.ErrNicknameTaken
	}

	data, err := json.Marshal(guest)
	if err != nil {
		return domain.GuestSession{}, err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.idKey(guest.ID), data, s.ttl)
	if guest.ClientToken != "" {
		pipe.Set(ctx, s.tokenKey(guest.ClientToken), guest.ID, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.GuestSession{}, fmt.Errorf("store guest session: %w", err)
	}
	return guest, nil
}

func (s *GuestStore) Get(ctx context.Context, id string) (domain.GuestSession, error) {
	data, err := s.client.Get(ctx, s.idKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GuestSession{}, domain.ErrGuestNotFound
	}
	if err != nil {
		return domain.GuestSession{}, fmt.Errorf("load guest session: %w", err)
	}
	var guest domain.GuestSession
	if err := json.Unmarshal(data, &guest); err != nil {
		return domain.GuestSession{}, fmt.Errorf("unmarshal guest session: %w", err)
	}
	return guest, nil
}

func (s *GuestStore) FindByClientToken(ctx context.Context, token string) (domain.GuestSession, bool, error) {
	id, err := s.client.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.GuestSession{}, false, nil
	}
	if err != nil {
		return domain.GuestSession{}, false, fmt.Errorf("lookup client token: %w", err)
	}
	guest, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrGuestNotFound) {
		return domain.GuestSession{}, false, nil
	}
	if err != nil {
		return domain.GuestSession{}, false, err
	}
	return guest, true, nil
}

func (s *GuestStore) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	n, err := s.client.Exists(ctx, s.nickKey(nickname)).Result()
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return n == 0, nil
}

func (s *GuestStore) idKey(id string) string {
	return "guest:" + id
}

func (s *GuestStore) nickKey(nickname string) string {
	return "guest:nick:" + strings.ToLower(strings.TrimSpace(nickname))
}

func (s *GuestStore) tokenKey(token string) string {
	return "guest:token:" + token
}
