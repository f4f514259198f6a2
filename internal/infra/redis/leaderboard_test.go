package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codegaming-service/internal/domain"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func runMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func submitResult(t *testing.T, lb *Leaderboard, name string, score int, playedAt time.Time) {
	t.Helper()
	err := lb.Submit(context.Background(), domain.SessionResult{
		Identity: domain.NewGuestIdentity("g-"+name, name),
		GameType: "quiz",
		Score:    score,
		PlayedAt: playedAt,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", name, err)
	}
}

func TestLeaderboardKeepsBestScore(t *testing.T) {
	mr := runMiniredis(t)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	lb := NewLeaderboardWithClock(newClient(mr), func() time.Time { return now })

	submitResult(t, lb, "Ada", 50, now)
	submitResult(t, lb, "Ada", 30, now.Add(time.Minute))
	submitResult(t, lb, "Ada", 70, now.Add(2*time.Minute))

	page, err := lb.Page(context.Background(), domain.ScopeAllTime, "quiz", 1, 10)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].Score != 70 {
		t.Fatalf("expected one row with the best score, got %+v", page.Entries)
	}
}

func TestLeaderboardRanksAndPaginates(t *testing.T) {
	mr := runMiniredis(t)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	lb := NewLeaderboardWithClock(newClient(mr), func() time.Time { return now })

	names := []string{"Ada", "Bob", "Carol", "Dan", "Eve"}
	for i, name := range names {
		submitResult(t, lb, name, 100-i*10, now)
	}

	page, err := lb.Page(context.Background(), domain.ScopeWeekly, "quiz", 2, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Pagination.Total != 5 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected two rows, got %+v", page.Entries)
	}
	if page.Entries[0].Rank != 3 || page.Entries[0].DisplayName != "Carol" || page.Entries[0].Score != 80 {
		t.Fatalf("unexpected second page: %+v", page.Entries)
	}
	if page.Entries[0].PlayedAt.IsZero() {
		t.Fatalf("expected playedAt from meta, got %+v", page.Entries[0])
	}
}

func TestLeaderboardWeeklyKeyUsesISOWeek(t *testing.T) {
	mr := runMiniredis(t)
	playedAt := time.Date(2026, 8, 17, 12, 0, 0, 0, time.UTC)
	now := playedAt
	lb := NewLeaderboardWithClock(newClient(mr), func() time.Time { return now })

	submitResult(t, lb, "Ada", 80, playedAt)

	year, week := playedAt.ISOWeek()
	weeklyKey := fmt.Sprintf("lb:quiz:weekly:%d-%02d", year, week)
	if !mr.Exists(weeklyKey) {
		t.Fatalf("expected weekly key %s", weeklyKey)
	}
	if !mr.Exists("lb:quiz:alltime") {
		t.Fatalf("expected alltime key")
	}
	if ttl := mr.TTL(weeklyKey); ttl <= 0 || ttl > weeklyTTL {
		t.Fatalf("weekly key must expire, ttl=%v", ttl)
	}
	if ttl := mr.TTL("lb:quiz:alltime"); ttl != 0 {
		t.Fatalf("alltime key must not expire, ttl=%v", ttl)
	}

	// Next week the weekly board reads a fresh key.
	now = playedAt.AddDate(0, 0, 7)
	page, err := lb.Page(context.Background(), domain.ScopeWeekly, "quiz", 1, 10)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Fatalf("last week's score must not appear, got %+v", page.Entries)
	}
}
