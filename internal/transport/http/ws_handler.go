package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
)

type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Label      string `json:"label"`
}

type answerResult struct {
	Response        domain.Response `json:"response"`
	AlreadyAnswered bool            `json:"alreadyAnswered"`
}

type joinedPayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeHost runs the host's control channel: it streams session snapshots and
// accepts start/advance/end/results commands.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	hostID := r.URL.Query().Get("hostId")
	if sessionID == "" || hostID == "" {
		http.Error(w, "missing sessionId or hostId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.serveConn(conn, r, sessionID, func(inbound inboundMessage, send chan<- outboundMessage[any]) {
		switch inbound.Type {
		case "start":
			if _, err := h.engine.StartSession(r.Context(), sessionID, hostID); err != nil {
				send <- errorMessage(err)
			}
		case "advance":
			if _, err := h.engine.AdvanceQuestion(r.Context(), sessionID, hostID); err != nil {
				send <- errorMessage(err)
			}
		case "end":
			if _, err := h.engine.EndSession(r.Context(), sessionID, hostID); err != nil {
				send <- errorMessage(err)
			}
		case "results":
			results, err := h.engine.Results(r.Context(), sessionID, hostID)
			if err != nil {
				send <- errorMessage(err)
				return
			}
			send <- outboundMessage[any]{Type: "results", Payload: results}
		default:
			send <- errorMessage(errors.New("unsupported message type"))
		}
	})
}

// ServeParticipant joins a participant by code and runs their channel: it
// streams session snapshots and accepts answer submissions.
func (h *WSHandler) ServeParticipant(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	if code == "" || name == "" {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}

	session, err := h.engine.JoinSession(r.Context(), code, name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(outboundMessage[any]{Type: "joined", Payload: joinedPayload{SessionID: session.ID, Name: name}}); err != nil {
		return
	}

	h.serveConn(conn, r, session.ID, func(inbound inboundMessage, send chan<- outboundMessage[any]) {
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage(errors.New("invalid answer payload"))
				return
			}
			resp, already, err := h.engine.SubmitAnswer(r.Context(), session.ID, payload.QuestionID, name, payload.Label)
			if errors.Is(err, domain.ErrStaleQuestion) {
				// The client raced a transition; the next snapshot resyncs it
				// silently instead of surfacing a hard error.
				return
			}
			if err != nil {
				send <- errorMessage(err)
				return
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{Response: resp, AlreadyAnswered: already}}
		default:
			send <- errorMessage(errors.New("unsupported message type"))
		}
	})
}

// serveConn wires one websocket into a session's snapshot stream and pumps
// inbound messages through handle. Writes are serialized on a single goroutine.
func (h *WSHandler) serveConn(conn *websocket.Conn, r *http.Request, sessionID string, handle func(inboundMessage, chan<- outboundMessage[any])) {
	snapshots, cancel, err := h.engine.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var lastSeq uint64
		first := true
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				// Snapshots are full state; anything at or below the last
				// applied sequence is stale and safe to skip.
				if !first && snap.Seq <= lastSeq {
					continue
				}
				first = false
				lastSeq = snap.Seq
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		handle(inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
