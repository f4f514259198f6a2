package memory

import (
	"context"
	"testing"
	"time"

	"codegaming-service/internal/domain"
)

func newGuest(id, nickname, token string) domain.GuestSession {
	return domain.GuestSession{
		ID:          id,
		Nickname:    nickname,
		ClientToken: token,
		CreatedAt:   time.Now(),
	}
}

func TestGuestStoreRegisterAndGet(t *testing.T) {
	store := NewGuestStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Register(ctx, newGuest("g1", "Ada", "tok-1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := store.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Nickname != "Ada" {
		t.Fatalf("unexpected guest: %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); err != domain.ErrGuestNotFound {
		t.Fatalf("expected ErrGuestNotFound, got %v", err)
	}
}

func TestGuestStoreNicknameCaseInsensitive(t *testing.T) {
	store := NewGuestStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Register(ctx, newGuest("g1", "Ada", "")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.Register(ctx, newGuest("g2", "  ADA ", "")); err != domain.ErrNicknameTaken {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}

	free, err := store.NicknameAvailable(ctx, "ada")
	if err != nil || free {
		t.Fatalf("expected ada to be taken, free=%v err=%v", free, err)
	}
	free, err = store.NicknameAvailable(ctx, "Grace")
	if err != nil || !free {
		t.Fatalf("expected Grace to be free, free=%v err=%v", free, err)
	}
}

func TestGuestStoreFindByClientToken(t *testing.T) {
	store := NewGuestStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Register(ctx, newGuest("g1", "Ada", "tok-1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, ok, err := store.FindByClientToken(ctx, "tok-1")
	if err != nil || !ok || got.ID != "g1" {
		t.Fatalf("expected g1 by token, got %+v ok=%v err=%v", got, ok, err)
	}
	_, ok, err = store.FindByClientToken(ctx, "tok-2")
	if err != nil || ok {
		t.Fatalf("unknown token must not match, ok=%v err=%v", ok, err)
	}
}

func TestGuestStoreExpiryFreesNickname(t *testing.T) {
	store := NewGuestStore(time.Minute)
	now := time.Now()
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Register(ctx, newGuest("g1", "Ada", "tok-1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := store.Get(ctx, "g1"); err != domain.ErrGuestNotFound {
		t.Fatalf("expected expired guest to be gone, got %v", err)
	}
	if _, ok, _ := store.FindByClientToken(ctx, "tok-1"); ok {
		t.Fatalf("expired guest must not resolve by token")
	}
	free, err := store.NicknameAvailable(ctx, "Ada")
	if err != nil || !free {
		t.Fatalf("expired nickname should be free again, free=%v err=%v", free, err)
	}
	if _, err := store.Register(ctx, newGuest("g2", "Ada", "")); err != nil {
		t.Fatalf("re-register after expiry: %v", err)
	}
}
