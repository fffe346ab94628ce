package session

import (
	"context"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/domain/repository"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"
	"FlowHunter/pkg/util"

	"github.com/benbjohnson/clock"
)

// Window is a daily UTC window in minutes of day. End is exclusive and may
// be smaller than Start for windows that cross midnight.
type Window struct {
	Name  string
	Start int
	End   int
}

// Contains reports whether the minute of day falls inside the window.
func (w Window) Contains(minute int) bool {
	if w.Start <= w.End {
		return minute >= w.Start && minute < w.End
	}
	return minute >= w.Start || minute < w.End
}

// ParseWindows converts configured "HH:MM" windows.
func ParseWindows(in []config.SessionWindow) ([]Window, error) {
	out := make([]Window, 0, len(in))
	for _, sw := range in {
		start, end, err := config.ParseSession(sw)
		if err != nil {
			return nil, err
		}
		out = append(out, Window{Name: sw.Name, Start: start, End: end})
	}
	return out, nil
}

// Active returns the first window containing t.
func Active(windows []Window, t time.Time) (Window, bool) {
	m := util.MinuteOfDay(t)
	for _, w := range windows {
		if w.Contains(m) {
			return w, true
		}
	}
	return Window{}, false
}

type Option func(*Monitor)

func WithClock(clk clock.Clock) Option {
	return func(m *Monitor) { m.clk = clk }
}

// Monitor tracks the active session and reports transitions.
type Monitor struct {
	log *logger.Logger
	clk clock.Clock
	pub repository.TelemetryPublisher

	mu      sync.RWMutex
	windows []Window
	current string
}

func NewMonitor(windows []Window, pub repository.TelemetryPublisher, log *logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		log:     log.With(logger.String("component", "session")),
		clk:     clock.New(),
		pub:     pub,
		windows: windows,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetWindows replaces the windows. The next check reports any transition.
func (m *Monitor) SetWindows(w []Window) {
	m.mu.Lock()
	m.windows = w
	m.mu.Unlock()
}

// Active returns the name of the session open at t.
func (m *Monitor) Active(t time.Time) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := Active(m.windows, t)
	return w.Name, ok
}

// Check compares the session at now with the last seen one and publishes
// a session-change event on a transition.
func (m *Monitor) Check(ctx context.Context) {
	now := m.clk.Now()
	name, _ := m.Active(now)

	m.mu.Lock()
	prev := m.current
	m.current = name
	m.mu.Unlock()
	if prev == name {
		return
	}

	m.log.Info("session changed", logger.String("from", prev), logger.String("to", name))
	if m.pub == nil {
		return
	}
	err := m.pub.PublishEvent(ctx, models.TelemetryEvent{
		Type:      models.EventSessionChange,
		Payload:   map[string]any{"from": prev, "to": name, "open": name != ""},
		Timestamp: now,
	})
	if err != nil {
		m.log.Warn("publish session change failed", logger.Error(err))
	}
}

// Run checks once a minute until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)
	t := m.clk.Ticker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Check(ctx)
		}
	}
}
