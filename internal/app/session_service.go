package app

import (
	"context"
	"log"
	"strings"
	"time"

	"codegaming-service/internal/domain"
	"codegaming-service/internal/game"
	"github.com/google/uuid"
)

// QuestionRepository supplies the fixed question set for a session. A session
// fetches exactly once; there is no mid-session refetch.
type QuestionRepository interface {
	GetQuestions(ctx context.Context, difficulty string, count int) ([]domain.Question, error)
}

// GuestRepository stores nickname-bound guest sessions.
type GuestRepository interface {
	Register(ctx context.Context, guest domain.GuestSession) (domain.GuestSession, error)
	Get(ctx context.Context, id string) (domain.GuestSession, error)
	FindByClientToken(ctx context.Context, token string) (domain.GuestSession, bool, error)
	NicknameAvailable(ctx context.Context, nickname string) (bool, error)
}

// LeaderboardRepository ranks submitted results per scope and game type.
type LeaderboardRepository interface {
	Submit(ctx context.Context, result domain.SessionResult) error
	Page(ctx context.Context, scope domain.Scope, gameType string, page, pageSize int) (domain.Leaderboard, error)
}

// ResultStore persists attempts and final results durably; all writes are
// best-effort from the service's point of view.
type ResultStore interface {
	SaveAttempt(ctx context.Context, rec domain.AttemptRecord) error
	SaveResult(ctx context.Context, res domain.SessionResult) error
}

// SessionStore holds live runners.
type SessionStore interface {
	Put(runner *game.Runner)
	Get(id string) (*game.Runner, bool)
	Delete(id string)
}

// SessionService contains the play-session use cases: guest registration,
// session start, answer grading, skipping, restarts and leaderboards.
type SessionService struct {
	modes       map[game.GameType]game.Mode
	sessions    SessionStore
	questions   QuestionRepository
	guests      GuestRepository
	leaderboard LeaderboardRepository
	results     ResultStore
	feed        *Feed
	now         func() time.Time
}

// ServiceOption tweaks service construction.
type ServiceOption func(*SessionService)

// WithModes overrides the stock mode tuning.
func WithModes(modes map[game.GameType]game.Mode) ServiceOption {
	return func(s *SessionService) { s.modes = modes }
}

// WithResultStore attaches durable attempt/result persistence.
func WithResultStore(store ResultStore) ServiceOption {
	return func(s *SessionService) { s.results = store }
}

// WithServiceClock swaps the wall clock for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(
	sessions SessionStore,
	questions QuestionRepository,
	guests GuestRepository,
	leaderboard LeaderboardRepository,
	opts ...ServiceOption,
) *SessionService {
	s := &SessionService{
		modes:       game.DefaultModes(),
		sessions:    sessions,
		questions:   questions,
		guests:      guests,
		leaderboard: leaderboard,
		feed:        NewFeed(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed exposes the stream of reported results, for live leaderboard views.
func (s *SessionService) Feed() *Feed { return s.feed }

// Modes returns the mode table in use.
func (s *SessionService) Modes() map[game.GameType]game.Mode { return s.modes }

// RegisterGuest validates a nickname and registers a guest session. A repeat
// call with the same client token and nickname returns the existing session,
// so a tab reload keeps its identity.
func (s *SessionService) RegisterGuest(ctx context.Context, nickname, clientToken, userAgent, ip string) (domain.GuestSession, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < 2 {
		return domain.GuestSession{}, domain.ErrNicknameTooShort
	}

	if clientToken != "" {
		existing, ok, err := s.guests.FindByClientToken(ctx, clientToken)
		if err != nil {
			return domain.GuestSession{}, err
		}
		if ok && strings.EqualFold(existing.Nickname, nickname) {
			return existing, nil
		}
	}

	available, err := s.guests.NicknameAvailable(ctx, nickname)
	if err != nil {
		return domain.GuestSession{}, err
	}
	if !available {
		return domain.GuestSession{}, domain.ErrNicknameTaken
	}

	guest := domain.GuestSession{
		ID:          uuid.NewString(),
		Nickname:    nickname,
		ClientToken: clientToken,
		UserAgent:   userAgent,
		IPAddress:   ip,
		CreatedAt:   s.now(),
	}
	return s.guests.Register(ctx, guest)
}

// Guest resolves a registered guest session by id.
func (s *SessionService) Guest(ctx context.Context, id string) (domain.GuestSession, error) {
	return s.guests.Get(ctx, id)
}

// CheckNickname reports whether a guest nickname is free.
func (s *SessionService) CheckNickname(ctx context.Context, nickname string) (bool, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < 2 {
		return false, domain.ErrNicknameTooShort
	}
	return s.guests.NicknameAvailable(ctx, nickname)
}

// StartSession resolves identity, loads the question set and begins play.
// A load failure leaves no session behind; the caller must start again.
func (s *SessionService) StartSession(ctx context.Context, gameType game.GameType, difficulty string, identity domain.Identity) (game.Snapshot, error) {
	mode, ok := s.modes[gameType]
	if !ok {
		return game.Snapshot{}, domain.ErrUnknownGameType
	}
	if !identity.Valid() {
		return game.Snapshot{}, domain.ErrGuestNotFound
	}
	if identity.Kind == domain.IdentityGuest {
		guest, err := s.guests.Get(ctx, identity.GuestSessionID)
		if err != nil {
			return game.Snapshot{}, err
		}
		identity.DisplayName = guest.Nickname
	}
	if mode.Difficulty != "" {
		// Challenge mode is pinned to expert regardless of the request.
		difficulty = mode.Difficulty
	}

	runner := game.NewRunner(uuid.NewString(), mode, identity,
		game.WithOnEnded(s.report))
	if err := runner.BeginLoading(); err != nil {
		return game.Snapshot{}, err
	}

	questions, err := s.questions.GetQuestions(ctx, difficulty, mode.QuestionCount)
	if err != nil {
		return game.Snapshot{}, err
	}
	if err := runner.Begin(questions); err != nil {
		return game.Snapshot{}, err
	}

	s.sessions.Put(runner)
	return runner.Snapshot(), nil
}

// GetSession returns the current snapshot.
func (s *SessionService) GetSession(id string) (game.Snapshot, error) {
	runner, ok := s.sessions.Get(id)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return runner.Snapshot(), nil
}

// SubmitAnswer grades an answer and records the attempt. Attempt persistence
// is best-effort and never blocks or fails the round.
func (s *SessionService) SubmitAnswer(ctx context.Context, id string, answer domain.Answer) (domain.Feedback, game.Snapshot, error) {
	runner, ok := s.sessions.Get(id)
	if !ok {
		return domain.Feedback{}, game.Snapshot{}, domain.ErrSessionNotFound
	}
	feedback, err := runner.Submit(answer)
	if err != nil {
		return domain.Feedback{}, runner.Snapshot(), err
	}

	if s.results != nil {
		identity := runner.Identity()
		rec := domain.AttemptRecord{
			SessionID:      id,
			UserID:         identity.UserID,
			GuestSessionID: identity.GuestSessionID,
			QuestionID:     feedback.QuestionID,
			ChoiceID:       answer.ChoiceID,
			Answer:         answer.Text,
			Correct:        feedback.Correct,
			TimedOut:       feedback.Kind == domain.FeedbackTimeout,
			TimeTaken:      answer.TimeTaken,
			CreatedAt:      s.now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.results.SaveAttempt(ctx, rec); err != nil {
				log.Printf("save attempt for session %s: %v", id, err)
			}
		}()
	}
	return feedback, runner.Snapshot(), nil
}

// Skip advances past the current question without grading.
func (s *SessionService) Skip(id string) (game.Snapshot, error) {
	runner, ok := s.sessions.Get(id)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := runner.Skip(); err != nil {
		return runner.Snapshot(), err
	}
	return runner.Snapshot(), nil
}

// Restart resets an existing session back to welcome.
func (s *SessionService) Restart(id string) (game.Snapshot, error) {
	runner, ok := s.sessions.Get(id)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	runner.Restart()
	return runner.Snapshot(), nil
}

// EndSession drops a session from the store, stopping its timers.
func (s *SessionService) EndSession(id string) {
	runner, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	runner.Close()
	s.sessions.Delete(id)
}

// Leaderboard returns one ranked page, marking the viewer's own rows.
func (s *SessionService) Leaderboard(ctx context.Context, scope domain.Scope, gameType string, page, pageSize int, viewerName string) (domain.Leaderboard, error) {
	lb, err := s.leaderboard.Page(ctx, scope, gameType, page, pageSize)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if viewerName != "" {
		for i := range lb.Entries {
			lb.Entries[i].IsViewer = strings.EqualFold(lb.Entries[i].DisplayName, viewerName)
		}
	}
	return lb, nil
}

// SubmitScore records a result on the leaderboard directly. Used by the
// explicit submission endpoint; session-end reporting goes through report.
func (s *SessionService) SubmitScore(ctx context.Context, result domain.SessionResult) error {
	if err := s.leaderboard.Submit(ctx, result); err != nil {
		return err
	}
	s.feed.Publish(result)
	return nil
}

// report runs once per ended session. Failures are logged and swallowed: the
// local summary never depends on the submission landing.
func (s *SessionService) report(result domain.SessionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.leaderboard.Submit(ctx, result); err != nil {
		log.Printf("leaderboard submit for session %s: %v", result.SessionID, err)
	} else {
		s.feed.Publish(result)
	}
	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			log.Printf("save result for session %s: %v", result.SessionID, err)
		}
	}
}
