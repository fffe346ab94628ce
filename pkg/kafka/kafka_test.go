package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"FlowHunter/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "lz4")

	err := p.Publish(context.Background(), "t1", []byte("k"), map[string]int{"a": 1}, Header{Key: "trace_id", Value: "x"})
	require.NoError(t, err)

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "t1", msgs[0].Topic)
	assert.Equal(t, []byte("k"), msgs[0].Key)
	var got map[string]int
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	assert.Equal(t, 1, got["a"])
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "trace_id", msgs[0].Headers[0].Key)
}

func TestProducerPublishMessageRaw(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "lz4")
	require.NoError(t, p.PublishMessage(context.Background(), "logs", []byte(`{"x":1}`)))
	assert.Equal(t, []byte(`{"x":1}`), w.written()[0].Value)
}

func TestProducerPublishError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("down")}, "lz4")
	assert.Error(t, p.Publish(context.Background(), "t", nil, "v"))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type countingHandler struct {
	topic string
	mu    sync.Mutex
	calls int
	fail  int
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.fail {
		return errors.New("transient")
	}
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newTestConsumer(r *fakeReader, retries int) *Consumer {
	cfg := defaultConsumerConfig()
	cfg.RetryMax = retries
	cfg.BackoffMin = time.Millisecond
	cfg.BackoffMax = 2 * time.Millisecond
	return newConsumer(cfg, logger.NewNop(), func(string) messageReader { return r })
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 1)}
	h := &countingHandler{topic: "cmd", fail: 2}
	c := newTestConsumer(r, 3)
	c.RegisterHandler(h)
	c.WithConsumerHook(TraceHook{Log: logger.NewNop()})
	require.NoError(t, c.Start(context.Background()))

	r.msgs <- kafka.Message{Topic: "cmd", Offset: 7, Value: []byte("{}")}

	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, h.count())
	assert.Equal(t, []int64{7}, r.commits())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestConsumerDeadLettersExhaustedMessages(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 1)}
	h := &countingHandler{topic: "cmd", fail: 100}
	c := newTestConsumer(r, 1)
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.cfg.DLQTopic = "cmd.dlq"
	c.RegisterHandler(h)
	require.NoError(t, c.Start(context.Background()))

	r.msgs <- kafka.Message{Topic: "cmd", Offset: 3, Value: []byte("{}")}

	assert.Eventually(t, func() bool { return len(dlq.written()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.count())
	assert.Equal(t, "cmd.dlq", dlq.written()[0].Topic)
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestTraceHookRejectsEmptyPayload(t *testing.T) {
	_, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_EMPTY", he.Code)
}

func TestTraceHookExtractsTraceID(t *testing.T) {
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "t",
		kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
}
