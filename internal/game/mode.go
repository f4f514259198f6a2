package game

import "time"

// GameType names one of the site's play modes. All three share the same
// runner; only their Mode parameters differ.
type GameType string

const (
	TypeQuiz      GameType = "quiz"
	TypeChallenge GameType = "challenge"
	TypeMiniGame  GameType = "minigame"
)

// Mode parameterizes a session runner for one game type.
type Mode struct {
	Type          GameType
	InitialLives  int
	Points        int
	QuestionCount int
	// Difficulty pins the mode to one difficulty (challenge is always
	// "expert"); empty means the player picks at start.
	Difficulty    string
	Timed         bool
	QuestionTime  time.Duration
	FeedbackDelay time.Duration
	// SkipCostsLife makes skipping cost a life like a timeout does.
	// Skipping is free in the stock modes.
	SkipCostsLife bool
}

// DefaultModes returns the stock tuning for the three game types.
func DefaultModes() map[GameType]Mode {
	return map[GameType]Mode{
		TypeQuiz: {
			Type:          TypeQuiz,
			InitialLives:  7,
			Points:        10,
			QuestionCount: 10,
			FeedbackDelay: 2500 * time.Millisecond,
		},
		TypeChallenge: {
			Type:          TypeChallenge,
			InitialLives:  3,
			Points:        30,
			QuestionCount: 10,
			Difficulty:    "expert",
			Timed:         true,
			QuestionTime:  30 * time.Second,
			FeedbackDelay: 2500 * time.Millisecond,
		},
		TypeMiniGame: {
			Type:          TypeMiniGame,
			InitialLives:  5,
			Points:        15,
			QuestionCount: 8,
			Timed:         true,
			QuestionTime:  20 * time.Second,
			FeedbackDelay: 2 * time.Second,
		},
	}
}
