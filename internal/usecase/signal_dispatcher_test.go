package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/service/halt"
	"FlowHunter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	failures int
	calls    int
	closed   bool
}

func (f *flakyPublisher) PublishSignal(context.Context, *models.Signal) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func (f *flakyPublisher) Close() error {
	f.closed = true
	return nil
}

func TestDispatchRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	d := NewSignalDispatcher(pub, 3, time.Millisecond, logger.NewNop())

	require.NoError(t, d.Dispatch(context.Background(), &models.Signal{SignalID: "s1"}))
	assert.Equal(t, 3, pub.calls)

	require.NoError(t, d.Close())
	assert.True(t, pub.closed)
}

func TestDispatchGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	d := NewSignalDispatcher(pub, 2, time.Millisecond, logger.NewNop())

	err := d.Dispatch(context.Background(), &models.Signal{SignalID: "s1"})
	assert.ErrorContains(t, err, "broker unavailable")
	assert.Equal(t, 3, pub.calls)
}

func TestDispatchStopsOnCancel(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	d := NewSignalDispatcher(pub, 50, time.Second, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, d.Dispatch(ctx, &models.Signal{SignalID: "s1"}))
	assert.LessOrEqual(t, pub.calls, 1)
}

func TestHaltHandler(t *testing.T) {
	sw := halt.NewSwitch(logger.NewNop())
	h := NewHaltHandler("hunter.cmd.sys.halt.v1", sw, logger.NewNop())
	assert.Equal(t, "hunter.cmd.sys.halt.v1", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"halted":true,"reason":"exchange incident"}`)))
	assert.True(t, sw.Halted())
	assert.Equal(t, "exchange incident", sw.Status().Reason)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"halted":false}`)))
	assert.False(t, sw.Halted())

	assert.Error(t, h.Handle(context.Background(), []byte(`{"reason":"x"}`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
}
