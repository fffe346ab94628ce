package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue: empty")

// RedisQueue keeps one capped Redis list per message type. Producers LPUSH,
// consumers BRPOP, so each list is FIFO.
type RedisQueue struct {
	client    redis.UniversalClient
	keyPrefix string
	maxLen    int64
	now       func() time.Time
	newID     func() string
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.keyPrefix = prefix }
}

// WithMaxLen caps every list; older entries are trimmed. Zero disables.
func WithMaxLen(n int64) RedisQueueOption {
	return func(r *RedisQueue) { r.maxLen = n }
}

func NewRedisQueue(client redis.UniversalClient, opts ...RedisQueueOption) *RedisQueue {
	r := &RedisQueue{
		client:    client,
		keyPrefix: "hunter:queue",
		maxLen:    10000,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PublishMessage appends payload to the msgType list.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{ID: r.newID(), Type: msgType, Payload: raw, Timestamp: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.key(msgType)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, key, 0, r.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest msgType message.
func (r *RedisQueue) Pop(ctx context.Context, msgType string, timeout time.Duration) (Message, error) {
	res, err := r.client.BRPop(ctx, timeout, r.key(msgType)).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, ErrEmpty
	}
	if err != nil {
		return Message{}, fmt.Errorf("brpop: %w", err)
	}
	var m Message
	if err := json.Unmarshal([]byte(res[1]), &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func (r *RedisQueue) key(msgType string) string {
	return r.keyPrefix + ":" + msgType
}
