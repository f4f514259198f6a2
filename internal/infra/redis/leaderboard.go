package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codegaming-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// weeklyTTL keeps the previous week around briefly after rollover.
const weeklyTTL = 14 * 24 * time.Hour

// Leaderboard ranks results in Redis sorted sets, one set per scope and game
// type. Only a player's best score counts; ZADD GT keeps lower scores from
// overwriting it.
// Keys:
//
//	lb:{gameType}:alltime            -> ZSET name -> score
//	lb:{gameType}:weekly:{yyyy-ww}   -> ZSET name -> score (expiring)
//	lbmeta:{zset key}                -> HASH name -> playedAt unix
type Leaderboard struct {
	client *redis.Client
	clock  func() time.Time
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client, clock: time.Now}
}

// NewLeaderboardWithClock is test-only for deterministic week bucketing.
func NewLeaderboardWithClock(client *redis.Client, now func() time.Time) *Leaderboard {
	return &Leaderboard{client: client, clock: now}
}

func (l *Leaderboard) Submit(ctx context.Context, result domain.SessionResult) error {
	name := result.Identity.DisplayName
	for _, scope := range []domain.Scope{domain.ScopeAllTime, domain.ScopeWeekly} {
		key := l.key(scope, result.GameType, result.PlayedAt)

		old, err := l.client.ZScore(ctx, key, name).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read score: %w", err)
		}
		improved := errors.Is(err, redis.Nil) || float64(result.Score) > old

		pipe := l.client.Pipeline()
		pipe.ZAddGT(ctx, key, redis.Z{Score: float64(result.Score), Member: name})
		if improved {
			pipe.HSet(ctx, l.metaKey(key), name, result.PlayedAt.Unix())
		}
		if scope == domain.ScopeWeekly {
			pipe.Expire(ctx, key, weeklyTTL)
			pipe.Expire(ctx, l.metaKey(key), weeklyTTL)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("submit score: %w", err)
		}
	}
	return nil
}

func (l *Leaderboard) Page(ctx context.Context, scope domain.Scope, gameType string, page, pageSize int) (domain.Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	key := l.key(scope, gameType, l.clock())

	total, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("count leaderboard: %w", err)
	}

	start := int64((page - 1) * pageSize)
	rows, err := l.client.ZRevRangeWithScores(ctx, key, start, start+int64(pageSize)-1).Result()
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("read leaderboard: %w", err)
	}

	playedAt, err := l.client.HGetAll(ctx, l.metaKey(key)).Result()
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("read leaderboard meta: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		name, _ := row.Member.(string)
		entry := domain.LeaderboardEntry{
			Rank:        int(start) + i + 1,
			DisplayName: name,
			Score:       int(row.Score),
		}
		if raw, ok := playedAt[name]; ok {
			if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
				entry.PlayedAt = time.Unix(unix, 0).UTC()
			}
		}
		entries = append(entries, entry)
	}

	return domain.Leaderboard{
		Scope:    scope,
		GameType: gameType,
		Entries:  entries,
		Pagination: domain.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
		UpdatedAt: l.clock(),
	}, nil
}

func (l *Leaderboard) key(scope domain.Scope, gameType string, at time.Time) string {
	if scope == domain.ScopeWeekly {
		year, week := at.ISOWeek()
		return fmt.Sprintf("lb:%s:weekly:%d-%02d", gameType, year, week)
	}
	return "lb:" + gameType + ":alltime"
}

func (l *Leaderboard) metaKey(key string) string {
	return "lbmeta:" + key
}
