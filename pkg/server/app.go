package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	applogger "FlowHunter/pkg/logger"
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// App runs long-lived components until a signal arrives or one of them
// fails, then stops everything in reverse registration order.
type App struct {
	log             *applogger.Logger
	shutdownTimeout time.Duration
	tasks           []task
	closers         []closer
}

func New(log *applogger.Logger, shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{log: log, shutdownTimeout: shutdownTimeout}
}

// Go registers a component that runs until ctx is cancelled. A non-nil
// error from run stops the whole app.
func (a *App) Go(name string, run func(ctx context.Context) error) {
	a.tasks = append(a.tasks, task{name: name, run: run})
}

// OnStop registers a cleanup step. Steps run last-registered first.
func (a *App) OnStop(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run blocks until SIGINT/SIGTERM, parent cancellation or a component error.
func (a *App) Run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(a.tasks))
	var wg sync.WaitGroup
	for _, t := range a.tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			if err := t.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("component failed", applogger.String("component", t.name), applogger.Error(err))
				errCh <- fmt.Errorf("%s: %w", t.name, err)
			}
		}(t)
		a.log.Info("component started", applogger.String("component", t.name))
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-errCh:
	}
	cancel()
	return errors.Join(runErr, a.shutdown(&wg))
}

func (a *App) shutdown(wg *sync.WaitGroup) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.log.Warn("stop error", applogger.String("component", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.log.Info("shutdown complete")
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for components")
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
