package game

import (
	"testing"
	"time"

	"codegaming-service/internal/domain"
)

// manualTimers disables real timer firing so tests drive transitions
// explicitly via Advance and ForceTimeout.
func manualTimers(d time.Duration, f func()) *time.Timer {
	return time.NewTimer(time.Hour)
}

func challengeMode() Mode {
	return Mode{
		Type:          TypeChallenge,
		InitialLives:  3,
		Points:        30,
		QuestionCount: 5,
		Difficulty:    "expert",
		Timed:         true,
		QuestionTime:  30 * time.Second,
		FeedbackDelay: 2 * time.Second,
	}
}

func quizMode() Mode {
	return Mode{
		Type:          TypeQuiz,
		InitialLives:  7,
		Points:        10,
		QuestionCount: 5,
		FeedbackDelay: 2 * time.Second,
	}
}

func testQuestions(n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:     string(rune('a' + i)),
			Prompt: "pick the first option",
			Type:   domain.QuestionMultipleChoice,
			Choices: []domain.Choice{
				{ID: "right", Text: "yes", Correct: true},
				{ID: "wrong", Text: "no"},
			},
			Explanation: "the first option was correct",
		}
	}
	return questions
}

func startedRunner(t *testing.T, mode Mode, questions []domain.Question, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithAfterFunc(manualTimers)}, opts...)
	r := NewRunner("s1", mode, domain.NewGuestIdentity("g1", "Tester"), opts...)
	if err := r.BeginLoading(); err != nil {
		t.Fatalf("begin loading: %v", err)
	}
	if err := r.Begin(questions); err != nil {
		t.Fatalf("begin: %v", err)
	}
	return r
}

func submitAndAdvance(t *testing.T, r *Runner, answer domain.Answer) domain.Feedback {
	t.Helper()
	fb, err := r.Submit(answer)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	r.Advance()
	return fb
}

func TestChallengeFullSession(t *testing.T) {
	// 5 questions, 2 correct then 3 incorrect: lives never hit zero, so the
	// session runs the whole set and ends with 2 * 30 points.
	r := startedRunner(t, challengeMode(), testQuestions(5))

	for i := 0; i < 2; i++ {
		snap := r.Snapshot()
		fb := submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "right"})
		if fb.Kind != domain.FeedbackCorrect || fb.Awarded != 30 {
			t.Fatalf("expected correct feedback worth 30, got %+v", fb)
		}
	}
	for i := 0; i < 3; i++ {
		snap := r.Snapshot()
		fb := submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "wrong"})
		if fb.Kind != domain.FeedbackIncorrect {
			t.Fatalf("expected incorrect feedback, got %+v", fb)
		}
	}

	snap := r.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", snap.Phase)
	}
	if snap.CurrentIndex != 5 {
		t.Fatalf("expected index 5, got %d", snap.CurrentIndex)
	}
	if snap.Score != 60 {
		t.Fatalf("expected score 60, got %d", snap.Score)
	}
	if snap.Lives != 0 {
		t.Fatalf("expected 0 lives left, got %d", snap.Lives)
	}
	if snap.Result == nil {
		t.Fatalf("expected a result on the ended snapshot")
	}
	if snap.Result.Percentage != 40 || snap.Result.Tier != domain.TierCodeNovice {
		t.Fatalf("expected 40%% Code Novice, got %d%% %s", snap.Result.Percentage, snap.Result.Tier)
	}
}

func TestTimeoutCostsLifeRegardlessOfPartialAnswer(t *testing.T) {
	r := startedRunner(t, challengeMode(), testQuestions(5))

	snap := r.Snapshot()
	r.ForceTimeout()

	fb := r.Snapshot().LastFeedback
	if fb == nil || fb.Kind != domain.FeedbackTimeout {
		t.Fatalf("expected timeout feedback, got %+v", fb)
	}
	if fb.QuestionID != snap.Question.ID {
		t.Fatalf("timeout graded the wrong question: %+v", fb)
	}
	if got := r.Snapshot().Lives; got != 2 {
		t.Fatalf("expected 2 lives after timeout, got %d", got)
	}
	if got := r.Snapshot().Score; got != 0 {
		t.Fatalf("timeout must not score, got %d", got)
	}
}

func TestLivesExhaustionEndsEarly(t *testing.T) {
	r := startedRunner(t, challengeMode(), testQuestions(5))

	for i := 0; i < 3; i++ {
		snap := r.Snapshot()
		submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "wrong"})
	}

	snap := r.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Fatalf("expected ended after 3 wrong answers, got %s", snap.Phase)
	}
	if snap.CurrentIndex != 3 {
		t.Fatalf("expected to end at index 3, got %d", snap.CurrentIndex)
	}
	if snap.Lives != 0 {
		t.Fatalf("expected 0 lives, got %d", snap.Lives)
	}
}

func TestDoubleSubmitRejectedDuringFeedback(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(5))

	snap := r.Snapshot()
	if _, err := r.Submit(domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "right"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := r.Submit(domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "right"}); err != domain.ErrNotPresenting {
		t.Fatalf("expected ErrNotPresenting on double submit, got %v", err)
	}
	if got := r.Snapshot().Score; got != 10 {
		t.Fatalf("double submit must not double-score, got %d", got)
	}
}

func TestEmptyAnswerKeepsPresenting(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(5))

	snap := r.Snapshot()
	if _, err := r.Submit(domain.Answer{QuestionID: snap.Question.ID}); err != domain.ErrEmptyAnswer {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	after := r.Snapshot()
	if after.Phase != PhasePresenting || after.Lives != 7 || after.CurrentIndex != 0 {
		t.Fatalf("empty answer changed state: %+v", after)
	}
}

func TestSkipAdvancesWithoutPenalty(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(5))

	if err := r.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	snap := r.Snapshot()
	if snap.CurrentIndex != 1 {
		t.Fatalf("expected index 1 after skip, got %d", snap.CurrentIndex)
	}
	if snap.Lives != 7 || snap.Score != 0 {
		t.Fatalf("skip must not touch lives or score: %+v", snap)
	}
	if snap.LastFeedback != nil {
		t.Fatalf("skip must not produce feedback, got %+v", snap.LastFeedback)
	}
}

func TestSkipCostsLifeWhenConfigured(t *testing.T) {
	mode := quizMode()
	mode.SkipCostsLife = true
	r := startedRunner(t, mode, testQuestions(5))

	if err := r.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if got := r.Snapshot().Lives; got != 6 {
		t.Fatalf("expected skip to cost a life, lives=%d", got)
	}
}

func TestQuestionMismatchRejected(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(5))

	_, err := r.Submit(domain.Answer{QuestionID: "not-current", ChoiceID: "right"})
	if err != domain.ErrQuestionMismatch {
		t.Fatalf("expected ErrQuestionMismatch, got %v", err)
	}
}

func TestRestartResetsEverything(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(3))

	for r.Snapshot().Phase != PhaseEnded {
		snap := r.Snapshot()
		submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "right"})
	}

	r.Restart()
	snap := r.Snapshot()
	if snap.Phase != PhaseWelcome {
		t.Fatalf("expected welcome after restart, got %s", snap.Phase)
	}
	if snap.Score != 0 || snap.Lives != 7 || snap.CurrentIndex != 0 {
		t.Fatalf("restart did not reset counters: %+v", snap)
	}
	if snap.TotalQuestions != 0 {
		t.Fatalf("restart must drop the question set, got %d questions", snap.TotalQuestions)
	}
	// Play cannot resume without a fresh load.
	if _, err := r.Submit(domain.Answer{ChoiceID: "right"}); err != domain.ErrNotPresenting {
		t.Fatalf("expected ErrNotPresenting after restart, got %v", err)
	}
}

func TestInvariantsHoldThroughoutSession(t *testing.T) {
	r := startedRunner(t, quizMode(), testQuestions(5))

	check := func() {
		snap := r.Snapshot()
		if snap.CurrentIndex < 0 || snap.CurrentIndex > snap.TotalQuestions {
			t.Fatalf("index out of range: %+v", snap)
		}
		if snap.Lives < 0 || snap.Lives > 7 {
			t.Fatalf("lives out of range: %+v", snap)
		}
		if snap.Score != snap.CorrectCount*10 {
			t.Fatalf("score %d != correctCount %d * points", snap.Score, snap.CorrectCount)
		}
	}

	choices := []string{"right", "wrong", "right", "wrong", "wrong"}
	prev := 0
	for _, choice := range choices {
		snap := r.Snapshot()
		check()
		submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: choice})
		check()
		if got := r.Snapshot().Score; got < prev {
			t.Fatalf("score decreased from %d to %d", prev, got)
		} else {
			prev = got
		}
	}
	if r.Snapshot().Phase != PhaseEnded {
		t.Fatalf("expected ended after all questions")
	}
}

func TestOnEndedFiresExactlyOnce(t *testing.T) {
	results := make(chan domain.SessionResult, 2)
	r := startedRunner(t, quizMode(), testQuestions(1), WithOnEnded(func(res domain.SessionResult) {
		results <- res
	}))

	snap := r.Snapshot()
	submitAndAdvance(t, r, domain.Answer{QuestionID: snap.Question.ID, ChoiceID: "right"})
	// Extra advances must not re-fire the report.
	r.Advance()
	r.Advance()

	select {
	case res := <-results:
		if res.Score != 10 || res.CorrectCount != 1 || res.TotalQuestions != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.Percentage != 100 || res.Tier != domain.TierCodeMaster {
			t.Fatalf("expected a perfect Code Master run, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a reported result")
	}

	select {
	case res := <-results:
		t.Fatalf("result reported twice: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFreeTextGradingNormalizes(t *testing.T) {
	question := domain.Question{
		ID:             "ft1",
		Prompt:         "Keyword for a constant?",
		Type:           domain.QuestionFreeText,
		ExpectedAnswer: "const",
	}
	r := startedRunner(t, quizMode(), []domain.Question{question})

	fb, err := r.Submit(domain.Answer{QuestionID: "ft1", Text: "  CONST "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.Kind != domain.FeedbackCorrect {
		t.Fatalf("expected normalized text to grade correct, got %+v", fb)
	}
}

func TestTimedModeCountdownFires(t *testing.T) {
	mode := challengeMode()
	mode.QuestionTime = 20 * time.Millisecond
	r := NewRunner("s1", mode, domain.NewGuestIdentity("g1", "Tester"))
	if err := r.BeginLoading(); err != nil {
		t.Fatalf("begin loading: %v", err)
	}
	if err := r.Begin(testQuestions(3)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := r.Snapshot()
		if snap.LastFeedback != nil && snap.LastFeedback.Kind == domain.FeedbackTimeout {
			if snap.Lives != 2 {
				t.Fatalf("expected a life lost to the countdown, lives=%d", snap.Lives)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("countdown never fired, snapshot %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
