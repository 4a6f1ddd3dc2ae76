package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Session runtimes (fan-out channels, state machine) stay in-process; the
//     local map reuses the existing broadcast logic.
//   - Redis owns the join-code registry: SET NX on quizlit:code:{CODE} is the
//     collision check, and it holds across engine instances.
//   - Liveness keys carry a TTL so codes of abandoned sessions expire.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.RWMutex
	byID   map[string]*app.Session
	byCode map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		byID:   make(map[string]*app.Session),
		byCode: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	meta := session.Meta()

	reserved, err := s.client.SetNX(context.Background(), s.codeKey(meta.Code), meta.ID, s.ttl).Result()
	if err != nil {
		return err
	}
	if !reserved {
		return app.ErrCodeInUse
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byCode[meta.Code]; taken {
		return app.ErrCodeInUse
	}
	s.byID[meta.ID] = session
	s.byCode[meta.Code] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.sessionKey(meta.ID), string(meta.Status), s.ttl).Err()
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
	code := session.Meta().Code
	delete(s.byID, sessionID)
	delete(s.byCode, code)
	_ = s.client.Del(context.Background(), s.sessionKey(sessionID), s.codeKey(code)).Err()
}

func (s *SessionStore) codeKey(code string) string {
	return "quizlit:code:" + code
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "quizlit:session:" + sessionID
}
