package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"codegaming-service/internal/domain"
)

// Leaderboard is an in-memory implementation of app.LeaderboardRepository.
// It keeps the best score per display name, bucketed by game type and by ISO
// week for the weekly scope.
type Leaderboard struct {
	clock func() time.Time

	mu      sync.RWMutex
	buckets map[string]map[string]scoreRow
}

type scoreRow struct {
	displayName string
	score       int
	playedAt    time.Time
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		clock:   time.Now,
		buckets: make(map[string]map[string]scoreRow),
	}
}

// NewLeaderboardWithClock is test-only for deterministic week bucketing.
func NewLeaderboardWithClock(now func() time.Time) *Leaderboard {
	lb := NewLeaderboard()
	lb.clock = now
	return lb
}

func (l *Leaderboard) Submit(_ context.Context, result domain.SessionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, scope := range []domain.Scope{domain.ScopeAllTime, domain.ScopeWeekly} {
		key := bucketKey(scope, result.GameType, result.PlayedAt)
		bucket, ok := l.buckets[key]
		if !ok {
			bucket = make(map[string]scoreRow)
			l.buckets[key] = bucket
		}
		row, ok := bucket[result.Identity.DisplayName]
		if !ok || result.Score > row.score {
			bucket[result.Identity.DisplayName] = scoreRow{
				displayName: result.Identity.DisplayName,
				score:       result.Score,
				playedAt:    result.PlayedAt,
			}
		}
	}
	return nil
}

func (l *Leaderboard) Page(_ context.Context, scope domain.Scope, gameType string, page, pageSize int) (domain.Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	l.mu.RLock()
	bucket := l.buckets[bucketKey(scope, gameType, l.clock())]
	rows := make([]scoreRow, 0, len(bucket))
	for _, row := range bucket {
		rows = append(rows, row)
	}
	l.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		// Tie-break by who reached the score earlier, then name.
		if !rows[i].playedAt.Equal(rows[j].playedAt) {
			return rows[i].playedAt.Before(rows[j].playedAt)
		}
		return rows[i].displayName < rows[j].displayName
	})

	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	entries := make([]domain.LeaderboardEntry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			DisplayName: rows[i].displayName,
			Score:       rows[i].score,
			PlayedAt:    rows[i].playedAt,
		})
	}

	return domain.Leaderboard{
		Scope:    scope,
		GameType: gameType,
		Entries:  entries,
		Pagination: domain.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
		UpdatedAt: l.clock(),
	}, nil
}

// bucketKey spells out which ranked list a result belongs to. Weekly buckets
// roll over at ISO week boundaries.
func bucketKey(scope domain.Scope, gameType string, at time.Time) string {
	if scope == domain.ScopeWeekly {
		year, week := at.ISOWeek()
		return fmt.Sprintf("%s:weekly:%d-%02d", gameType, year, week)
	}
	return gameType + ":alltime"
}
