package kafka

import (
	"context"
	"fmt"

	"FlowHunter/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook wraps message handling. An error from BeforeHandle skips
// the handler and is treated as a permanent failure.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

// HookError classifies a failure raised by a hook.
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

type ctxKey string

// CtxTraceID holds the correlation id taken from the trace_id header.
const CtxTraceID ctxKey = "kafka_trace_id"

// TraceID returns the correlation id stored by TraceHook, if any.
func TraceID(ctx context.Context) string {
	s, _ := ctx.Value(CtxTraceID).(string)
	return s
}

// TraceHook copies the trace_id header into the context and logs
// failures with it.
type TraceHook struct {
	Log *logger.Logger
}

func (h TraceHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	if len(data) == 0 {
		return ctx, km, data, &HookError{Code: "ERR_EMPTY", Err: fmt.Errorf("empty payload on %s", topic)}
	}
	for _, hd := range km.Headers {
		if hd.Key == "trace_id" && len(hd.Value) > 0 {
			ctx = context.WithValue(ctx, CtxTraceID, string(hd.Value))
			break
		}
	}
	return ctx, km, data, nil
}

func (h TraceHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
	if err != nil && h.Log != nil {
		h.Log.Warn("kafka handle attempt failed",
			logger.String("topic", topic),
			logger.Int64("offset", km.Offset),
			logger.String("trace_id", TraceID(ctx)),
			logger.Error(err))
	}
}

func (h TraceHook) OnError(context.Context, string, kafka.Message, []byte, error) {}
