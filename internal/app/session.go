package app

import (
	"sync"
	"time"

	"quizlit-live/internal/domain"
)

// Session is the in-process runtime for one live quiz run. It is the single
// writer of the session's lifecycle state: every transition happens under its
// mutex, bumps the monotonic sequence number, and fans the resulting snapshot
// out to subscribers.
type Session struct {
	mu   sync.RWMutex
	meta domain.Session
	quiz domain.Quiz
	seq  uint64
	now  func() time.Time

	subscribers map[chan domain.SessionSnapshot]struct{}
}

// NewSession is exported for infrastructure layers and tests that need to
// seed session runtimes directly.
func NewSession(meta domain.Session, quiz domain.Quiz) *Session {
	return newSessionWithClock(meta, quiz, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(meta domain.Session, quiz domain.Quiz, now func() time.Time) *Session {
	return &Session{
		meta:        meta,
		quiz:        quiz,
		now:         now,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

// Meta returns a copy of the session's durable record.
func (s *Session) Meta() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Quiz returns the quiz content frozen at session creation.
func (s *Session) Quiz() domain.Quiz {
	return s.quiz
}

// Snapshot returns the current state without mutating anything.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) start() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta.Status != domain.StatusWaiting {
		return domain.SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.meta.Status = domain.StatusActive
	s.meta.CurrentIndex = 0
	return s.publishLocked(), nil
}

func (s *Session) advance() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta.Status != domain.StatusActive {
		return domain.SessionSnapshot{}, domain.ErrInvalidTransition
	}
	if s.meta.CurrentIndex >= len(s.quiz.Questions)-1 {
		return domain.SessionSnapshot{}, domain.ErrAlreadyLastQuestion
	}
	s.meta.CurrentIndex++
	return s.publishLocked(), nil
}

// end is idempotent: ending an ended session returns the current snapshot
// without emitting a new event.
func (s *Session) end() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta.Status == domain.StatusEnded {
		return s.snapshotLocked(), nil
	}
	ended := s.now()
	s.meta.Status = domain.StatusEnded
	s.meta.EndedAt = &ended
	return s.publishLocked(), nil
}

// current reports the lifecycle status and, while active, the current question.
func (s *Session) current() (domain.SessionStatus, domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta.Status != domain.StatusActive {
		return s.meta.Status, domain.Question{}, false
	}
	q, ok := s.quiz.QuestionAt(s.meta.CurrentIndex)
	return s.meta.Status, q, ok
}

// subscribe registers a fan-out channel. The current snapshot is delivered
// first, then every subsequent transition in emission order. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publishLocked() domain.SessionSnapshot {
	s.seq++
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest buffered snapshot so a stalled subscriber never
			// blocks the transition; it converges from the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:      s.meta.ID,
		Seq:            s.seq,
		Status:         s.meta.Status,
		CurrentIndex:   s.meta.CurrentIndex,
		TotalQuestions: len(s.quiz.Questions),
	}
	if s.meta.Status == domain.StatusActive {
		if q, ok := s.quiz.QuestionAt(s.meta.CurrentIndex); ok {
			snap.QuestionID = q.ID
			snap.QuestionNumber = s.meta.CurrentIndex + 1
		}
	}
	return snap
}
