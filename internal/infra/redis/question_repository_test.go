package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"codegaming-service/internal/domain"
	"codegaming-service/internal/infra/memory"
)

// countingLoader records hits against the backing store.
type countingLoader struct {
	QuestionLoader
	calls int64
}

func (l *countingLoader) LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error) {
	atomic.AddInt64(&l.calls, 1)
	return l.QuestionLoader.LoadQuestions(ctx, difficulty)
}

func sampleBank(n int) []domain.Question {
	bank := make([]domain.Question, n)
	for i := range bank {
		bank[i] = domain.Question{
			ID:     string(rune('a' + i)),
			Prompt: "q",
			Type:   domain.QuestionMultipleChoice,
			Choices: []domain.Choice{
				{ID: "right", Correct: true},
				{ID: "wrong"},
			},
		}
	}
	return bank
}

func TestQuestionRepositoryCachesBankInRedis(t *testing.T) {
	mr := runMiniredis(t)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"beginner": sampleBank(12),
		}),
	}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		questions, err := repo.GetQuestions(ctx, "beginner", 10)
		if err != nil {
			t.Fatalf("get questions: %v", err)
		}
		if len(questions) != 10 {
			t.Fatalf("expected a 10-question draw, got %d", len(questions))
		}
	}
	if got := atomic.LoadInt64(&loader.calls); got != 1 {
		t.Fatalf("expected a single loader hit, got %d", got)
	}
	if !mr.Exists("questions:beginner") {
		t.Fatalf("expected the bank cached under questions:beginner")
	}
}

func TestQuestionRepositoryRefetchesAfterExpiry(t *testing.T) {
	mr := runMiniredis(t)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			"beginner": sampleBank(3),
		}),
	}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetQuestions(ctx, "beginner", 3); err != nil {
		t.Fatalf("get questions: %v", err)
	}

	// Jitter adds at most 10%, so two TTLs is past any expiry.
	mr.FastForward(2 * time.Minute)

	if _, err := repo.GetQuestions(ctx, "beginner", 3); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if got := atomic.LoadInt64(&loader.calls); got != 2 {
		t.Fatalf("expected a refetch after expiry, got %d loader hits", got)
	}
}

func TestQuestionRepositoryPropagatesLoaderFailure(t *testing.T) {
	mr := runMiniredis(t)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(nil),
	}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuestions(context.Background(), "expert", 10); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if mr.Exists("questions:expert") {
		t.Fatalf("a failed load must not populate the cache")
	}
}
