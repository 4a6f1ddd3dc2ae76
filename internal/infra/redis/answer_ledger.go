package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizlit-live/internal/domain"
)

// AnswerLedger stores responses in one Redis hash per session:
//
//	HSETNX quizlit:session:{sessionID}:answers {questionID}:{participantName} {json}
//
// HSETNX makes the duplicate check and the insert a single atomic step on the
// server, so concurrent double-submits for the same participant collapse to
// one row even across engine instances.
type AnswerLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerLedger(client *redis.Client, ttl time.Duration) *AnswerLedger {
	return &AnswerLedger{client: client, ttl: ttl}
}

func (l *AnswerLedger) Record(ctx context.Context, resp domain.Response) (domain.Response, bool, error) {
	key := l.key(resp.SessionID)
	field := resp.QuestionID + ":" + resp.ParticipantName

	payload, err := json.Marshal(resp)
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("marshal response: %w", err)
	}

	inserted, err := l.client.HSetNX(ctx, key, field, payload).Result()
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("record response: %w", err)
	}
	if inserted {
		if l.ttl > 0 {
			_ = l.client.Expire(ctx, key, l.ttl).Err()
		}
		return resp, true, nil
	}

	raw, err := l.client.HGet(ctx, key, field).Result()
	if err != nil {
		return domain.Response{}, false, fmt.Errorf("read existing response: %w", err)
	}
	var existing domain.Response
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return domain.Response{}, false, fmt.Errorf("unmarshal existing response: %w", err)
	}
	return existing, false, nil
}

func (l *AnswerLedger) Responses(ctx context.Context, sessionID string) ([]domain.Response, error) {
	rows, err := l.client.HGetAll(ctx, l.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	out := make([]domain.Response, 0, len(rows))
	for _, raw := range rows {
		var resp domain.Response
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		out = append(out, resp)
	}
	return out, nil
}

func (l *AnswerLedger) key(sessionID string) string {
	return "quizlit:session:" + sessionID + ":answers"
}
