package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"codegaming-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question bank for a difficulty from a backing
// store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error)
}

// QuestionRepository caches per-difficulty banks with TTL and serves each
// session a fixed-size draw. The draw is shuffled server-side; once handed to
// a session it is never reordered.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

// GetQuestions returns up to count questions for the difficulty.
func (r *QuestionRepository) GetQuestions(ctx context.Context, difficulty string, count int) ([]domain.Question, error) {
	bank, err := r.bank(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return r.draw(bank, count), nil
}

func (r *QuestionRepository) bank(ctx context.Context, difficulty string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[difficulty]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(difficulty, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[difficulty]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[difficulty] = cachedBank{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) draw(bank []domain.Question, count int) []domain.Question {
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
	return picked
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is an in-memory bank keyed by difficulty (tests/demos).
type StaticQuestionLoader struct {
	banks map[string][]domain.Question
}

func NewStaticQuestionLoader(banks map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{banks: banks}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, difficulty string) ([]domain.Question, error) {
	if bank, ok := l.banks[difficulty]; ok {
		return bank, nil
	}
	return nil, domain.ErrNoQuestions
}
