package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a play session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned for actions against a finished session.
	ErrSessionEnded = errors.New("session already ended")
	// ErrNotPresenting rejects a submission while feedback is still showing.
	ErrNotPresenting = errors.New("no question awaiting an answer")
	// ErrQuestionMismatch rejects a submission for a question that is not current.
	ErrQuestionMismatch = errors.New("submitted question is not the current question")
	// ErrEmptyAnswer rejects a submission that carries no answer.
	ErrEmptyAnswer = errors.New("answer must not be empty")
	// ErrNoQuestions indicates the loader returned an empty question set.
	ErrNoQuestions = errors.New("no questions available")
	// ErrUnknownGameType indicates an unrecognized session mode.
	ErrUnknownGameType = errors.New("unknown game type")
	// ErrNicknameTooShort rejects guest nicknames under two characters.
	ErrNicknameTooShort = errors.New("nickname must be at least 2 characters")
	// ErrNicknameTaken indicates the guest nickname is already registered.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrGuestNotFound indicates an unknown guest session id.
	ErrGuestNotFound = errors.New("guest session not found")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken indicates the account name is already registered.
	ErrUsernameTaken = errors.New("username already taken")
)
