package game

import (
	"strings"
	"sync"
	"time"

	"codegaming-service/internal/domain"
)

// Phase is the runner's current state.
type Phase string

const (
	PhaseWelcome    Phase = "welcome"
	PhaseLoading    Phase = "loading"
	PhasePresenting Phase = "presenting"
	PhaseFeedback   Phase = "feedback"
	PhaseEnded      Phase = "ended"
)

// Snapshot is a point-in-time view of a session, safe to hand to clients.
// Question content never includes the answer key.
type Snapshot struct {
	ID               string                `json:"id"`
	GameType         GameType              `json:"gameType"`
	Phase            Phase                 `json:"phase"`
	Identity         domain.Identity       `json:"identity"`
	CurrentIndex     int                   `json:"currentIndex"`
	TotalQuestions   int                   `json:"totalQuestions"`
	Lives            int                   `json:"lives"`
	Score            int                   `json:"score"`
	CorrectCount     int                   `json:"correctCount"`
	RemainingSeconds *int                  `json:"remainingSeconds,omitempty"`
	StartedAt        time.Time             `json:"startedAt,omitempty"`
	ElapsedSeconds   int                   `json:"elapsedSeconds"`
	Question         *domain.QuestionView  `json:"question,omitempty"`
	LastFeedback     *domain.Feedback      `json:"lastFeedback,omitempty"`
	Result           *domain.SessionResult `json:"result,omitempty"`
}

// Runner drives one play session through
// welcome -> loading -> presenting(i) -> feedback(i) -> presenting(i+1) | ended.
// It owns the per-question countdown and the feedback auto-advance; both are
// single timers, always stopped before a replacement starts.
type Runner struct {
	id       string
	mode     Mode
	identity domain.Identity

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
	onEnded   func(domain.SessionResult)

	mu            sync.RWMutex
	phase         Phase
	questions     []domain.Question
	idx           int
	lives         int
	score         int
	correctCount  int
	startedAt     time.Time
	deadline      time.Time
	lastFeedback  *domain.Feedback
	result        *domain.SessionResult
	questionTimer *time.Timer
	feedbackTimer *time.Timer
}

// Option tweaks runner construction; used by tests for deterministic clocks.
type Option func(*Runner)

// WithClock swaps the wall clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithAfterFunc swaps the timer factory.
func WithAfterFunc(after func(time.Duration, func()) *time.Timer) Option {
	return func(r *Runner) { r.afterFunc = after }
}

// WithOnEnded registers the end-of-session hook. It fires exactly once per
// play-through, on the transition into the ended phase.
func WithOnEnded(fn func(domain.SessionResult)) Option {
	return func(r *Runner) { r.onEnded = fn }
}

// NewRunner creates a session in the welcome phase.
func NewRunner(id string, mode Mode, identity domain.Identity, opts ...Option) *Runner {
	r := &Runner{
		id:        id,
		mode:      mode,
		identity:  identity,
		now:       time.Now,
		afterFunc: time.AfterFunc,
		phase:     PhaseWelcome,
		lives:     mode.InitialLives,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the session id.
func (r *Runner) ID() string { return r.id }

// Mode returns the session's mode parameters.
func (r *Runner) Mode() Mode { return r.mode }

// Identity returns the player identity bound at creation.
func (r *Runner) Identity() domain.Identity { return r.identity }

// BeginLoading marks the question fetch as in flight. Only valid from welcome.
func (r *Runner) BeginLoading() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseWelcome {
		return domain.ErrSessionEnded
	}
	r.phase = PhaseLoading
	return nil
}

// AbortLoading returns the session to welcome after a failed fetch. The
// caller must start again explicitly; there is no automatic retry.
func (r *Runner) AbortLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseLoading {
		r.phase = PhaseWelcome
	}
}

// Begin installs the fetched question set and presents the first question.
// The set is fixed for the whole session; it is never reordered or refetched.
func (r *Runner) Begin(questions []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseLoading {
		return domain.ErrSessionEnded
	}
	if len(questions) == 0 {
		r.phase = PhaseWelcome
		return domain.ErrNoQuestions
	}
	r.questions = questions
	r.idx = 0
	r.lives = r.mode.InitialLives
	r.score = 0
	r.correctCount = 0
	r.lastFeedback = nil
	r.result = nil
	r.startedAt = r.now()
	r.presentLocked()
	return nil
}

// Submit grades the player's answer for the current question. A correct
// answer adds the mode's point value; an incorrect or timeout answer costs a
// life. While feedback is showing, further submissions are rejected, which is
// what keeps a double-clicked submit from landing twice.
func (r *Runner) Submit(answer domain.Answer) (domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(answer)
}

func (r *Runner) submitLocked(answer domain.Answer) (domain.Feedback, error) {
	if r.phase == PhaseEnded {
		return domain.Feedback{}, domain.ErrSessionEnded
	}
	if r.phase != PhasePresenting {
		return domain.Feedback{}, domain.ErrNotPresenting
	}
	question := r.questions[r.idx]
	if answer.QuestionID != "" && answer.QuestionID != question.ID {
		return domain.Feedback{}, domain.ErrQuestionMismatch
	}
	if !answer.Timeout && answer.IsEmpty() {
		// Stays in presenting; the countdown keeps running.
		return domain.Feedback{}, domain.ErrEmptyAnswer
	}

	r.stopQuestionTimerLocked()

	correct := !answer.Timeout && grade(question, answer)
	fb := domain.Feedback{
		QuestionID:  question.ID,
		Correct:     correct,
		Explanation: question.Explanation,
	}
	switch {
	case correct:
		fb.Kind = domain.FeedbackCorrect
		fb.Awarded = r.mode.Points
		r.score += r.mode.Points
		r.correctCount++
	case answer.Timeout:
		fb.Kind = domain.FeedbackTimeout
		r.lives--
	default:
		fb.Kind = domain.FeedbackIncorrect
		r.lives--
	}
	r.lastFeedback = &fb
	r.phase = PhaseFeedback

	r.stopFeedbackTimerLocked()
	r.feedbackTimer = r.afterFunc(r.mode.FeedbackDelay, r.Advance)
	return fb, nil
}

// Advance moves from feedback to the next question, or to ended when lives
// are exhausted or the set is done. Normally driven by the feedback timer; a
// no-op in any other phase.
func (r *Runner) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseFeedback {
		return
	}
	r.stopFeedbackTimerLocked()
	r.idx++
	r.nextLocked()
}

// Skip advances past the current question without contacting the grader. It
// costs a life only when the mode says so; the stock modes keep it free.
func (r *Runner) Skip() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseEnded {
		return domain.ErrSessionEnded
	}
	if r.phase != PhasePresenting {
		return domain.ErrNotPresenting
	}
	r.stopQuestionTimerLocked()
	if r.mode.SkipCostsLife {
		r.lives--
	}
	r.lastFeedback = nil
	r.idx++
	r.nextLocked()
	return nil
}

// ForceTimeout resolves the current question as a synthetic timeout
// submission. Invoked by the question timer; exported so a transport can also
// honor a client-reported expiry.
func (r *Runner) ForceTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePresenting {
		return
	}
	question := r.questions[r.idx]
	_, _ = r.submitLocked(domain.Answer{
		QuestionID: question.ID,
		TimeTaken:  int(r.mode.QuestionTime / time.Second),
		Timeout:    true,
	})
}

// Restart returns an ended session to welcome with all counters reset. The
// question set is dropped, so a fresh start (and difficulty selection) is
// required before play resumes.
func (r *Runner) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopQuestionTimerLocked()
	r.stopFeedbackTimerLocked()
	r.phase = PhaseWelcome
	r.questions = nil
	r.idx = 0
	r.lives = r.mode.InitialLives
	r.score = 0
	r.correctCount = 0
	r.startedAt = time.Time{}
	r.deadline = time.Time{}
	r.lastFeedback = nil
	r.result = nil
}

// Close stops any pending timers. Used when a session store evicts a runner.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopQuestionTimerLocked()
	r.stopFeedbackTimerLocked()
}

// Snapshot returns the current state for rendering.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		ID:             r.id,
		GameType:       r.mode.Type,
		Phase:          r.phase,
		Identity:       r.identity,
		CurrentIndex:   r.idx,
		TotalQuestions: len(r.questions),
		Lives:          r.lives,
		Score:          r.score,
		CorrectCount:   r.correctCount,
		StartedAt:      r.startedAt,
		LastFeedback:   r.lastFeedback,
		Result:         r.result,
	}
	if !r.startedAt.IsZero() && r.phase != PhaseEnded {
		snap.ElapsedSeconds = int(r.now().Sub(r.startedAt) / time.Second)
	}
	if r.result != nil {
		snap.ElapsedSeconds = r.result.ElapsedSeconds
	}
	if r.phase == PhasePresenting {
		view := r.questions[r.idx].View()
		snap.Question = &view
		if r.mode.Timed {
			remaining := int((r.deadline.Sub(r.now()) + time.Second - 1) / time.Second)
			if remaining < 0 {
				remaining = 0
			}
			snap.RemainingSeconds = &remaining
		}
	}
	return snap
}

// nextLocked decides where the session goes after leaving a question:
// out of lives or out of questions means ended, otherwise present the next.
func (r *Runner) nextLocked() {
	if r.lives <= 0 || r.idx >= len(r.questions) {
		r.endLocked()
		return
	}
	r.presentLocked()
}

func (r *Runner) presentLocked() {
	r.phase = PhasePresenting
	if !r.mode.Timed {
		return
	}
	r.deadline = r.now().Add(r.mode.QuestionTime)
	r.stopQuestionTimerLocked()
	index := r.idx
	r.questionTimer = r.afterFunc(r.mode.QuestionTime, func() {
		r.timeoutAt(index)
	})
}

// timeoutAt fires the timeout only if the session is still on the question
// the timer was armed for.
func (r *Runner) timeoutAt(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePresenting || r.idx != index {
		return
	}
	question := r.questions[r.idx]
	_, _ = r.submitLocked(domain.Answer{
		QuestionID: question.ID,
		TimeTaken:  int(r.mode.QuestionTime / time.Second),
		Timeout:    true,
	})
}

func (r *Runner) endLocked() {
	r.stopQuestionTimerLocked()
	r.stopFeedbackTimerLocked()
	r.phase = PhaseEnded

	now := r.now()
	maxScore := len(r.questions) * r.mode.Points
	percentage := 0
	if maxScore > 0 {
		percentage = (r.score*100 + maxScore/2) / maxScore
	}
	result := domain.SessionResult{
		SessionID:      r.id,
		Identity:       r.identity,
		GameType:       string(r.mode.Type),
		Score:          r.score,
		MaxScore:       maxScore,
		Percentage:     percentage,
		Tier:           domain.TierFor(percentage),
		TotalQuestions: len(r.questions),
		CorrectCount:   r.correctCount,
		ElapsedSeconds: int(now.Sub(r.startedAt) / time.Second),
		PlayedAt:       now,
	}
	r.result = &result

	if r.onEnded != nil {
		// The report is fire-and-forget: the summary above is already
		// complete and does not depend on it.
		go r.onEnded(result)
	}
}

func (r *Runner) stopQuestionTimerLocked() {
	if r.questionTimer != nil {
		r.questionTimer.Stop()
		r.questionTimer = nil
	}
}

func (r *Runner) stopFeedbackTimerLocked() {
	if r.feedbackTimer != nil {
		r.feedbackTimer.Stop()
		r.feedbackTimer = nil
	}
}

// grade checks an answer server-side. Multiple choice matches the selected
// choice id against the flagged one; free-text and code compare the
// normalized submission against the expected answer.
func grade(q domain.Question, a domain.Answer) bool {
	switch q.Type {
	case domain.QuestionMultipleChoice:
		return a.ChoiceID != "" && a.ChoiceID == q.CorrectChoiceID()
	case domain.QuestionFreeText, domain.QuestionCode:
		return normalize(a.Text) == normalize(q.ExpectedAnswer)
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
