package domain

import (
	"strings"
	"time"
)

// AnswerLabel identifies one of the four fixed options of a question.
type AnswerLabel string

const (
	LabelA AnswerLabel = "A"
	LabelB AnswerLabel = "B"
	LabelC AnswerLabel = "C"
	LabelD AnswerLabel = "D"
)

// Labels lists the valid answer labels in display order.
var Labels = []AnswerLabel{LabelA, LabelB, LabelC, LabelD}

// ParseLabel normalizes raw client input into an AnswerLabel.
func ParseLabel(raw string) (AnswerLabel, bool) {
	switch AnswerLabel(strings.ToUpper(strings.TrimSpace(raw))) {
	case LabelA:
		return LabelA, true
	case LabelB:
		return LabelB, true
	case LabelC:
		return LabelC, true
	case LabelD:
		return LabelD, true
	}
	return "", false
}

// Question models one MCQ question with four labeled options and exactly
// one correct label.
type Question struct {
	ID         string                 `json:"id"`
	Prompt     string                 `json:"prompt"`
	Options    map[AnswerLabel]string `json:"options"`
	Correct    AnswerLabel            `json:"correct"`
	OrderIndex int                    `json:"orderIndex"`
}

// Quiz is an ordered collection of questions, immutable once a session
// has been created for it.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuestionAt returns the question at the given zero-based order index.
func (q Quiz) QuestionAt(index int) (Question, bool) {
	if index < 0 || index >= len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[index], true
}

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

// Session is the durable record of one live run of a quiz.
// CurrentIndex is meaningful only while Status is active.
type Session struct {
	ID           string        `json:"id"`
	QuizID       string        `json:"quizId"`
	HostID       string        `json:"hostId"`
	Code         string        `json:"code"`
	Status       SessionStatus `json:"status"`
	CurrentIndex int           `json:"currentIndex"`
	CreatedAt    time.Time     `json:"createdAt"`
	EndedAt      *time.Time    `json:"endedAt,omitempty"`
}

// SessionSnapshot is the unit of realtime delivery: the full current state
// of a session, ordered by a per-session monotonic sequence number.
// Subscribers apply a snapshot only if its Seq exceeds the last one applied.
type SessionSnapshot struct {
	SessionID      string        `json:"sessionId"`
	Seq            uint64        `json:"seq"`
	Status         SessionStatus `json:"status"`
	CurrentIndex   int           `json:"currentIndex"`
	QuestionID     string        `json:"questionId,omitempty"`
	QuestionNumber int           `json:"questionNumber"` // 1-based, 0 while waiting
	TotalQuestions int           `json:"totalQuestions"`
}

// Response is one participant's recorded answer to one question.
// Rows are insert-only: at most one Response exists per
// (SessionID, QuestionID, ParticipantName) and it is never mutated.
type Response struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"sessionId"`
	QuestionID      string      `json:"questionId"`
	ParticipantName string      `json:"participantName"`
	Selected        AnswerLabel `json:"selected"`
	IsCorrect       bool        `json:"isCorrect"`
	SubmittedAt     time.Time   `json:"submittedAt"`
}

// QuestionStats aggregates all responses to a single question.
type QuestionStats struct {
	QuestionID     string              `json:"questionId"`
	Prompt         string              `json:"prompt"`
	Correct        AnswerLabel         `json:"correct"`
	TotalResponses int                 `json:"totalResponses"`
	CorrectCount   int                 `json:"correctCount"`
	IncorrectCount int                 `json:"incorrectCount"`
	CorrectPercent int                 `json:"correctPercent"`
	Distribution   map[AnswerLabel]int `json:"distribution"`
}

// SessionResults is the host-facing report derived from the answer ledger.
type SessionResults struct {
	SessionID        string          `json:"sessionId"`
	ParticipantCount int             `json:"participantCount"`
	AverageScore     int             `json:"averageScore"`    // percent
	OverallAccuracy  int             `json:"overallAccuracy"` // percent
	PerQuestion      []QuestionStats `json:"perQuestion"`
}
