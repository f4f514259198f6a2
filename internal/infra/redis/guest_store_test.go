package redis

import (
	"context"
	"testing"
	"time"

	"codegaming-service/internal/domain"
)

func TestGuestStoreRegistersAndResolves(t *testing.T) {
	mr := runMiniredis(t)
	store := NewGuestStore(newClient(mr), time.Hour)
	ctx := context.Background()

	guest := domain.GuestSession{
		ID:          "g1",
		Nickname:    "Ada",
		ClientToken: "tok-1",
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := store.Register(ctx, guest); err != nil {
		t.Fatalf("register: %v", err)
	}

	if !mr.Exists("guest:g1") || !mr.Exists("guest:nick:ada") || !mr.Exists("guest:token:tok-1") {
		t.Fatalf("expected guest keys to exist")
	}

	got, err := store.Get(ctx, "g1")
	if err != nil || got.Nickname != "Ada" {
		t.Fatalf("get: %+v err=%v", got, err)
	}

	byToken, ok, err := store.FindByClientToken(ctx, "tok-1")
	if err != nil || !ok || byToken.ID != "g1" {
		t.Fatalf("find by token: %+v ok=%v err=%v", byToken, ok, err)
	}
	if _, ok, _ := store.FindByClientToken(ctx, "tok-2"); ok {
		t.Fatalf("unknown token must not resolve")
	}
}

func TestGuestStoreNicknameReservation(t *testing.T) {
	mr := runMiniredis(t)
	store := NewGuestStore(newClient(mr), time.Hour)
	ctx := context.Background()

	if _, err := store.Register(ctx, domain.GuestSession{ID: "g1", Nickname: "Ada"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.Register(ctx, domain.GuestSession{ID: "g2", Nickname: " ADA "}); err != domain.ErrNicknameTaken {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}

	free, err := store.NicknameAvailable(ctx, "ada")
	if err != nil || free {
		t.Fatalf("expected ada taken, free=%v err=%v", free, err)
	}
	free, err = store.NicknameAvailable(ctx, "Grace")
	if err != nil || !free {
		t.Fatalf("expected Grace free, free=%v err=%v", free, err)
	}
}

func TestGuestStoreExpiry(t *testing.T) {
	mr := runMiniredis(t)
	store := NewGuestStore(newClient(mr), time.Minute)
	ctx := context.Background()

	if _, err := store.Register(ctx, domain.GuestSession{ID: "g1", Nickname: "Ada", ClientToken: "tok-1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "g1"); err != domain.ErrGuestNotFound {
		t.Fatalf("expected expired guest gone, got %v", err)
	}
	free, err := store.NicknameAvailable(ctx, "Ada")
	if err != nil || !free {
		t.Fatalf("expired nickname should be free, free=%v err=%v", free, err)
	}
	if _, err := store.Register(ctx, domain.GuestSession{ID: "g2", Nickname: "Ada"}); err != nil {
		t.Fatalf("re-register after expiry: %v", err)
	}
}
