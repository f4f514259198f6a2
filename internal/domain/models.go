package domain

import (
	"strings"
	"time"
)

// IdentityKind discriminates the two player variants.
type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityGuest IdentityKind = "guest"
)

// Identity is the tagged union of an authenticated user and a registered guest.
// Exactly one variant is populated; guests must hold a server-issued session id.
type Identity struct {
	Kind           IdentityKind `json:"kind"`
	UserID         int64        `json:"userId,omitempty"`
	GuestSessionID string       `json:"guestSessionId,omitempty"`
	DisplayName    string       `json:"displayName"`
}

func NewUserIdentity(userID int64, displayName string) Identity {
	return Identity{Kind: IdentityUser, UserID: userID, DisplayName: displayName}
}

func NewGuestIdentity(guestSessionID, nickname string) Identity {
	return Identity{Kind: IdentityGuest, GuestSessionID: guestSessionID, DisplayName: nickname}
}

// Valid reports whether exactly one variant is populated.
func (i Identity) Valid() bool {
	switch i.Kind {
	case IdentityUser:
		return i.UserID > 0 && i.GuestSessionID == ""
	case IdentityGuest:
		return i.GuestSessionID != "" && i.UserID == 0
	}
	return false
}

// QuestionType enumerates how an answer is collected and graded.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFreeText       QuestionType = "free_text"
	QuestionCode           QuestionType = "code"
)

// Choice is one selectable option of a multiple-choice question.
type Choice struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is server-supplied quiz content. The Correct flags and
// ExpectedAnswer stay server-side; clients only ever see a QuestionView.
type Question struct {
	ID             string       `json:"id"`
	Prompt         string       `json:"prompt"`
	Type           QuestionType `json:"type"`
	Difficulty     string       `json:"difficulty"`
	Choices        []Choice     `json:"choices,omitempty"`
	ExpectedAnswer string       `json:"expectedAnswer,omitempty"`
	Explanation    string       `json:"explanation,omitempty"`
	StarterCode    string       `json:"starterCode,omitempty"`
}

// ChoiceView is the client-safe projection of a Choice.
type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

/// QuestionView is the client-safe projection of a Question: same content,
// answer key stripped.
type QuestionView struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Type        QuestionType `json:"type"`
	Choices     []ChoiceView `json:"choices,omitempty"`
	StarterCode string       `json:"starterCode,omitempty"`
}

// View strips the answer key from a question for delivery to players.
func (q Question) View() QuestionView {
	choices := make([]ChoiceView, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = ChoiceView{ID: c.ID, Text: c.Text}
	}
	return QuestionView{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Type:        q.Type,
		Choices:     choices,
		StarterCode: q.StarterCode,
	}
}

// CorrectChoiceID returns the id of the choice flagged correct, or "".
func (q Question) CorrectChoiceID() string {
	for _, c := range q.Choices {
		if c.Correct {
			return c.ID
		}
	}
	return ""
}

// GuestSession is a nickname-bound ephemeral identity for unauthenticated play.
type GuestSession struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	ClientToken string    `json:"clientToken"`
	UserAgent   string    `json:"userAgent,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Answer is a player's submission for one question. A timeout submission
// carries Timeout=true and is always graded incorrect.
type Answer struct {
	QuestionID string `json:"questionId"`
	ChoiceID   string `json:"choiceId,omitempty"`
	Text       string `json:"text,omitempty"`
	TimeTaken  int    `json:"timeTaken,omitempty"`
	Timeout    bool   `json:"timeout,omitempty"`
}

// IsEmpty reports whether the submission carries no usable answer.
func (a Answer) IsEmpty() bool {
	return a.ChoiceID == "" && strings.TrimSpace(a.Text) == ""
}

// FeedbackKind labels how a round resolved.
type FeedbackKind string

const (
	FeedbackCorrect   FeedbackKind = "correct"
	FeedbackIncorrect FeedbackKind = "incorrect"
	FeedbackTimeout   FeedbackKind = "timeout"
)

// Feedback is the graded outcome of one submission.
type Feedback struct {
	QuestionID  string       `json:"questionId"`
	Kind        FeedbackKind `json:"kind"`
	Correct     bool         `json:"correct"`
	Awarded     int          `json:"awarded"`
	Explanation string       `json:"explanation,omitempty"`
}

// AttemptRecord persists a single graded submission.
type AttemptRecord struct {
	SessionID      string    `json:"sessionId"`
	UserID         int64     `json:"userId,omitempty"`
	GuestSessionID string    `json:"guestSessionId,omitempty"`
	QuestionID     string    `json:"questionId"`
	ChoiceID       string    `json:"choiceId,omitempty"`
	Answer         string    `json:"answer,omitempty"`
	Correct        bool      `json:"correct"`
	TimedOut       bool      `json:"timedOut"`
	TimeTaken      int       `json:"timeTaken"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SessionResult is the final outcome reported once per session.
type SessionResult struct {
	SessionID      string    `json:"sessionId"`
	Identity       Identity  `json:"identity"`
	GameType       string    `json:"gameType"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"maxScore"`
	Percentage     int       `json:"percentage"`
	Tier           Tier      `json:"tier"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectCount   int       `json:"correctCount"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	PlayedAt       time.Time `json:"playedAt"`
}

// Scope is the leaderboard time window.
type Scope string

const (
	ScopeAllTime Scope = "alltime"
	ScopeWeekly  Scope = "weekly"
)

// ParseScope maps a query value onto a scope, defaulting to all-time.
func ParseScope(raw string) (Scope, bool) {
	switch raw {
	case "", string(ScopeAllTime):
		return ScopeAllTime, true
	case string(ScopeWeekly):
		return ScopeWeekly, true
	}
	return ScopeAllTime, false
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	PlayedAt    time.Time `json:"playedAt"`
	IsViewer    bool      `json:"isViewer"`
}

// Pagination describes the slice of a ranked list a page covers.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Leaderboard is one page of ranked results for a scope and game type.
type Leaderboard struct {
	Scope      Scope              `json:"scope"`
	GameType   string             `json:"gameType"`
	Entries    []LeaderboardEntry `json:"entries"`
	Pagination Pagination         `json:"pagination"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
