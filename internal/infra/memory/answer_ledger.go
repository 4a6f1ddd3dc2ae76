package memory

import (
	"context"
	"sync"

	"quizlit-live/internal/domain"
)

type answerKey struct {
	sessionID       string
	questionID      string
	participantName string
}

// AnswerLedger is an in-process implementation of app.AnswerLedger. The
// duplicate check and the insert happen under one lock, so two concurrent
// submissions for the same participant can never both land.
type AnswerLedger struct {
	mu        sync.Mutex
	bySession map[string][]domain.Response
	index     map[answerKey]domain.Response
}

func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{
		bySession: make(map[string][]domain.Response),
		index:     make(map[answerKey]domain.Response),
	}
}

func (l *AnswerLedger) Record(_ context.Context, resp domain.Response) (domain.Response, bool, error) {
	key := answerKey{resp.SessionID, resp.QuestionID, resp.ParticipantName}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.index[key]; ok {
		return existing, false, nil
	}
	l.index[key] = resp
	l.bySession[resp.SessionID] = append(l.bySession[resp.SessionID], resp)
	return resp, true, nil
}

func (l *AnswerLedger) Responses(_ context.Context, sessionID string) ([]domain.Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.bySession[sessionID]
	out := make([]domain.Response, len(rows))
	copy(out, rows)
	return out, nil
}
