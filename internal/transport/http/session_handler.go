package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
)

// SessionHandler exposes the non-streaming boundary operations: creating a
// session for an authored quiz and fetching the host's results report.
type SessionHandler struct {
	engine *app.Engine
}

func NewSessionHandler(engine *app.Engine) *SessionHandler {
	return &SessionHandler{engine: engine}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
	HostID string `json:"hostId"`
}

// CreateSession handles POST /sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, err := h.engine.CreateSession(r.Context(), req.QuizID, req.HostID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Results handles GET /results?sessionId=&hostId=.
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	hostID := r.URL.Query().Get("hostId")
	if sessionID == "" || hostID == "" {
		http.Error(w, "missing sessionId or hostId", http.StatusBadRequest)
		return
	}
	results, err := h.engine.Results(r.Context(), sessionID, hostID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionEnded):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyLastQuestion),
		errors.Is(err, domain.ErrStaleQuestion):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotSessionHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyQuiz):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
