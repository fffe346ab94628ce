package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService accepts typed messages. The logger's collector and the
// telemetry publisher both write through it.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Message is the envelope stored in the queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes the payload of m into T.
func ParsePayload[T any](m Message) (*T, error) {
	var result T
	if err := json.Unmarshal(m.Payload, &result); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", m.Type, err)
	}
	return &result, nil
}
