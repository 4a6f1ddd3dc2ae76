package memory

import (
	"sync"

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
)

// SessionStore is an in-process implementation of app.SessionStore, indexing
// session runtimes by ID and by join code.
type SessionStore struct {
	mu     sync.RWMutex
	byID   map[string]*app.Session
	byCode map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:   make(map[string]*app.Session),
		byCode: make(map[string]*app.Session),
	}
}

// Add registers a session; the join-code reservation and the insert are one
// atomic step under the store lock.
func (s *SessionStore) Add(session *app.Session) error {
	meta := session.Meta()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[meta.Code]; taken {
		return app.ErrCodeInUse
	}
	s.byID[meta.ID] = session
	s.byCode[meta.Code] = session
	return nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[sessionID]
	return session, ok
}

func (s *SessionStore) ByCode(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byCode[code]
	return session, ok
}

func (s *SessionStore) ActiveByHost(hostID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, session := range s.byID {
		meta := session.Meta()
		if meta.HostID == hostID && meta.Status != domain.StatusEnded {
			count++
		}
	}
	return count
}

func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[sessionID]
	if !ok {
		return
	}
	delete(s.byID, sessionID)
	delete(s.byCode, session.Meta().Code)
}
