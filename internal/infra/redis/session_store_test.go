package redis

import (
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
)

func storedSession(id, host, code string) *app.Session {
	return app.NewSession(domain.Session{
		ID:     id,
		QuizID: "quiz-1",
		HostID: host,
		Code:   code,
		Status: domain.StatusWaiting,
	}, domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1", Correct: domain.LabelA, Options: map[domain.AnswerLabel]string{domain.LabelA: "yes"}}}})
}

func TestSessionStoreReservesCodeInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	if err := store.Add(storedSession("s1", "host-1", "AAAAAA")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !mr.Exists("quizlit:code:AAAAAA") {
		t.Fatalf("expected code key reserved in redis")
	}
	if !mr.Exists("quizlit:session:s1") {
		t.Fatalf("expected liveness key in redis")
	}

	// The SET NX registry rejects a second session on the same code even if
	// it came from another engine instance.
	err = store.Add(storedSession("s2", "host-2", "AAAAAA"))
	if !errors.Is(err, app.ErrCodeInUse) {
		t.Fatalf("expected code-in-use, got %v", err)
	}

	store.Remove("s1")
	if mr.Exists("quizlit:code:AAAAAA") || mr.Exists("quizlit:session:s1") {
		t.Fatalf("expected redis keys cleared on remove")
	}
}

func TestSessionStoreLookups(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	_ = store.Add(storedSession("s1", "host-1", "AAAAAA"))
	_ = store.Add(storedSession("s2", "host-1", "BBBBBB"))

	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session by id")
	}
	if _, ok := store.ByCode("BBBBBB"); !ok {
		t.Fatalf("expected session by code")
	}
	if got := store.ActiveByHost("host-1"); got != 2 {
		t.Fatalf("expected 2 active sessions, got %d", got)
	}
}
