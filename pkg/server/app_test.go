package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FlowHunter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppStopsInReverseOrder(t *testing.T) {
	app := New(logger.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	started := make(chan struct{})
	app.Go("worker", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	app.OnStop("kafka", record("kafka"))
	app.OnStop("http", record("http"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-started
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"http", "kafka"}, order)
}

func TestAppComponentFailureStopsRun(t *testing.T) {
	app := New(logger.NewNop(), time.Second)
	boom := errors.New("listener closed")
	app.Go("http", func(context.Context) error { return boom })
	app.Go("scanner", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	stopped := false
	app.OnStop("cache", func(context.Context) error {
		stopped = true
		return nil
	})

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "http")
	assert.True(t, stopped)
}

func TestAppShutdownTimeout(t *testing.T) {
	app := New(logger.NewNop(), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	app.Go("stuck", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, app.Run(ctx), context.DeadlineExceeded)
}
