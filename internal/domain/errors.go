package domain

import "errors"

var (
	// ErrSessionNotFound is returned for unknown session IDs or join codes.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when joining or submitting to an ended session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrInvalidTransition is returned for illegal lifecycle moves.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrAlreadyLastQuestion signals an advance past the final question;
	// the host must end the session explicitly.
	ErrAlreadyLastQuestion = errors.New("already at last question")
	// ErrStaleQuestion is returned when an answer targets a question that is
	// no longer the session's current question.
	ErrStaleQuestion = errors.New("question is no longer current")
	// ErrInvalidInput covers malformed labels and empty participant names.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotSessionHost is returned when a lifecycle operation comes from a
	// caller other than the session's creating host.
	ErrNotSessionHost = errors.New("caller is not the session host")
	// ErrSessionLimit is returned when a host exceeds the configured number
	// of concurrent non-ended sessions.
	ErrSessionLimit = errors.New("too many concurrent sessions for host")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz is returned when creating a session for a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
)
