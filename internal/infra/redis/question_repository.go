package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"codegaming-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question bank for a difficulty from a backing
// store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error)
}

// QuestionRepository caches per-difficulty banks in Redis as JSON and falls
// back to the loader on cache miss. The cached bank carries the answer key;
// it never leaves the server.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuestions returns up to count questions for the difficulty, drawn
// shuffled from the cached bank.
func (r *QuestionRepository) GetQuestions(ctx context.Context, difficulty string, count int) ([]domain.Question, error) {
	bank, err := r.bank(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}

	picked := make([]domain.Question, len(bank))
	copy(picked, bank)
	r.rndMu.Lock()
	r.rnd.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	r.rndMu.Unlock()
	if count > 0 && count < len(picked) {
		picked = picked[:count]
	}
	return picked, nil
}

func (r *QuestionRepository) bank(ctx context.Context, difficulty string) ([]domain.Question, error) {
	key := r.bankKey(difficulty)

	if bank, ok, err := r.cached(ctx, key); err == nil && ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(difficulty, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok, err := r.cached(ctx, key); err == nil && ok {
			return bank, nil
		}

		bank, err := r.loader.LoadQuestions(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(bank)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) cached(ctx context.Context, key string) ([]domain.Question, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read question cache: %w", err)
	}
	var bank []domain.Question
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, false, fmt.Errorf("unmarshal question cache: %w", err)
	}
	return bank, true, nil
}

func (r *QuestionRepository) bankKey(difficulty string) string {
	return "questions:" + difficulty
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
