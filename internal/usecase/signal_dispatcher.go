package usecase

import (
	"context"
	"fmt"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
	applogger "FlowHunter/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// SignalDispatcher publishes signals with bounded exponential retry.
// Delivery is at-least-once; the gateway dedupes on signal ID.
type SignalDispatcher struct {
	pub        domrepo.SignalPublisher
	maxRetries uint64
	initial    time.Duration
	l          *applogger.Logger
}

func NewSignalDispatcher(pub domrepo.SignalPublisher, maxRetries int, initial time.Duration, l *applogger.Logger) *SignalDispatcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}
	return &SignalDispatcher{pub: pub, maxRetries: uint64(maxRetries), initial: initial, l: l}
}

func (d *SignalDispatcher) Dispatch(ctx context.Context, s *models.Signal) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.initial
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := d.pub.PublishSignal(ctx, s)
		if err != nil {
			d.l.Warn("publish signal failed",
				applogger.String("signal_id", s.SignalID),
				applogger.Int("attempt", attempt),
				applogger.Error(err))
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, d.maxRetries), ctx)); err != nil {
		return fmt.Errorf("dispatch %s after %d attempts: %w", s.SignalID, attempt, err)
	}
	return nil
}

func (d *SignalDispatcher) Close() error { return d.pub.Close() }
