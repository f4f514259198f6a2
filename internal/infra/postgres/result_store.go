package postgres

import (
	"context"
	"fmt"

	"codegaming-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists graded attempts and final session results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveAttempt(ctx context.Context, rec domain.AttemptRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attempts
			(session_id, user_id, guest_session_id, question_id, choice_id, answer, correct, timed_out, time_taken, created_at)
		VALUES ($1, NULLIF($2, 0), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
		rec.SessionID, rec.UserID, rec.GuestSessionID, rec.QuestionID, rec.ChoiceID,
		rec.Answer, rec.Correct, rec.TimedOut, rec.TimeTaken, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *ResultStore) SaveResult(ctx context.Context, res domain.SessionResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_results
			(session_id, user_id, guest_session_id, display_name, game_type, score, max_score, percentage, tier, total_questions, correct_count, elapsed_seconds, played_at)
		VALUES ($1, NULLIF($2, 0), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		res.SessionID, res.Identity.UserID, res.Identity.GuestSessionID, res.Identity.DisplayName,
		res.GameType, res.Score, res.MaxScore, res.Percentage, string(res.Tier),
		res.TotalQuestions, res.CorrectCount, res.ElapsedSeconds, res.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session result: %w", err)
	}
	return nil
}
