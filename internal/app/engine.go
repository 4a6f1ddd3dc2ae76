package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizlit-live/internal/domain"
)

// ErrCodeInUse is returned by SessionStore.Add when the join code is already
// registered to another live session; the engine retries with a fresh code.
var ErrCodeInUse = errors.New("join code already in use")

// SessionStore indexes live session runtimes (in-memory, Redis-backed, etc).
type SessionStore interface {
	// Add registers a session, reserving its join code atomically.
	Add(session *Session) error
	Get(sessionID string) (*Session, bool)
	// ByCode resolves a normalized (uppercase) join code.
	ByCode(code string) (*Session, bool)
	// ActiveByHost counts the host's non-ended sessions.
	ActiveByHost(hostID string) int
	Remove(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AnswerLedger is the append-only, deduplicated record of responses.
// Record must be atomic per (sessionID, questionID, participantName): when a
// response already exists it returns the stored row and inserted=false.
type AnswerLedger interface {
	Record(ctx context.Context, resp domain.Response) (stored domain.Response, inserted bool, err error)
	Responses(ctx context.Context, sessionID string) ([]domain.Response, error)
}

// Options carries the engine's configuration knobs.
type Options struct {
	CodeLength         int
	CodeAlphabet       string
	MaxSessionsPerHost int
}

// Engine wires the session coordinator, answer ledger and results aggregator
// into the live quiz use cases.
type Engine struct {
	sessions   SessionStore
	quizzes    QuizRepository
	ledger     AnswerLedger
	codes      *codeAllocator
	maxPerHost int
	now        func() time.Time
	newID      func() string
}

func NewEngine(store SessionStore, quizzes QuizRepository, ledger AnswerLedger, opts Options) *Engine {
	return &Engine{
		sessions:   store,
		quizzes:    quizzes,
		ledger:     ledger,
		codes:      newCodeAllocator(opts.CodeLength, opts.CodeAlphabet),
		maxPerHost: opts.MaxSessionsPerHost,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// CreateSession loads the quiz, allocates a collision-free join code and
// registers a new session in the waiting state.
func (e *Engine) CreateSession(ctx context.Context, quizID, hostID string) (domain.Session, error) {
	if hostID == "" {
		return domain.Session{}, fmt.Errorf("%w: empty host id", domain.ErrInvalidInput)
	}

	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Session{}, err
	}

	if e.maxPerHost > 0 && e.sessions.ActiveByHost(hostID) >= e.maxPerHost {
		return domain.Session{}, domain.ErrSessionLimit
	}

	meta := domain.Session{
		ID:        e.newID(),
		QuizID:    quiz.ID,
		HostID:    hostID,
		Status:    domain.StatusWaiting,
		CreatedAt: e.now(),
	}

	// The store reserves the code atomically; a collision with another live
	// session retries with a fresh draw.
	for attempt := 0; ; attempt++ {
		meta.Code = e.codes.newCode()
		session := newSessionWithClock(meta, quiz, e.now)
		err := e.sessions.Add(session)
		if err == nil {
			return session.Meta(), nil
		}
		if !errors.Is(err, ErrCodeInUse) || attempt >= 10 {
			return domain.Session{}, fmt.Errorf("register session: %w", err)
		}
	}
}

// StartSession moves a waiting session to active on its first question.
func (e *Engine) StartSession(ctx context.Context, sessionID, hostID string) (domain.SessionSnapshot, error) {
	session, err := e.hostSession(sessionID, hostID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.start()
}

// AdvanceQuestion moves an active session to its next question. Advancing at
// the last question is rejected; the host ends the session explicitly so
// stragglers can finish answering.
func (e *Engine) AdvanceQuestion(ctx context.Context, sessionID, hostID string) (domain.SessionSnapshot, error) {
	session, err := e.hostSession(sessionID, hostID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.advance()
}

// EndSession terminates a session. Ending an already-ended session is a no-op.
func (e *Engine) EndSession(ctx context.Context, sessionID, hostID string) (domain.SessionSnapshot, error) {
	session, err := e.hostSession(sessionID, hostID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.end()
}

// JoinSession resolves a join code for a participant. Joining is allowed
// while the session is waiting or active.
func (e *Engine) JoinSession(ctx context.Context, code, participantName string) (domain.Session, error) {
	if strings.TrimSpace(participantName) == "" {
		return domain.Session{}, fmt.Errorf("%w: empty participant name", domain.ErrInvalidInput)
	}
	session, ok := e.sessions.ByCode(normalizeCode(code))
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	meta := session.Meta()
	if meta.Status == domain.StatusEnded {
		return domain.Session{}, domain.ErrSessionEnded
	}
	return meta, nil
}

// Subscribe streams snapshots for a session, starting with the current one.
func (e *Engine) Subscribe(ctx context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// SubmitAnswer records a participant's answer to the session's current
// question. A repeat submission for the same (question, participant) returns
// the original response with alreadyAnswered=true; answers are immutable.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, questionID, participantName, label string) (domain.Response, bool, error) {
	name := strings.TrimSpace(participantName)
	if name == "" {
		return domain.Response{}, false, fmt.Errorf("%w: empty participant name", domain.ErrInvalidInput)
	}
	selected, ok := domain.ParseLabel(label)
	if !ok {
		return domain.Response{}, false, fmt.Errorf("%w: label %q", domain.ErrInvalidInput, label)
	}

	session, found := e.sessions.Get(sessionID)
	if !found {
		return domain.Response{}, false, domain.ErrSessionNotFound
	}

	status, question, active := session.current()
	if !active {
		if status == domain.StatusEnded {
			return domain.Response{}, false, domain.ErrSessionEnded
		}
		return domain.Response{}, false, domain.ErrInvalidTransition
	}
	if question.ID != questionID {
		return domain.Response{}, false, domain.ErrStaleQuestion
	}

	resp := domain.Response{
		ID:              e.newID(),
		SessionID:       sessionID,
		QuestionID:      questionID,
		ParticipantName: name,
		Selected:        selected,
		IsCorrect:       selected == question.Correct,
		SubmittedAt:     e.now(),
	}
	stored, inserted, err := e.ledger.Record(ctx, resp)
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("record answer: %w", err)
	}
	return stored, !inserted, nil
}

// Results computes the host-facing report from the answer ledger. It works at
// any lifecycle stage and stays queryable after the session has ended.
func (e *Engine) Results(ctx context.Context, sessionID, hostID string) (domain.SessionResults, error) {
	session, err := e.hostSession(sessionID, hostID)
	if err != nil {
		return domain.SessionResults{}, err
	}
	responses, err := e.ledger.Responses(ctx, sessionID)
	if err != nil {
		return domain.SessionResults{}, fmt.Errorf("load responses: %w", err)
	}
	return BuildResults(sessionID, session.Quiz(), responses), nil
}

func (e *Engine) hostSession(sessionID, hostID string) (*Session, error) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.Meta().HostID != hostID {
		return nil, domain.ErrNotSessionHost
	}
	return session, nil
}

func validateQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}
	for i, q := range quiz.Questions {
		if q.OrderIndex != i {
			return fmt.Errorf("%w: question order not dense at %d", domain.ErrInvalidInput, i)
		}
		if _, ok := domain.ParseLabel(string(q.Correct)); !ok {
			return fmt.Errorf("%w: question %s correct label %q", domain.ErrInvalidInput, q.ID, q.Correct)
		}
		if strings.TrimSpace(q.Options[q.Correct]) == "" {
			return fmt.Errorf("%w: question %s correct option empty", domain.ErrInvalidInput, q.ID)
		}
	}
	return nil
}
