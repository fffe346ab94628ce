package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []models.TelemetryEvent
}

func (r *recorder) PublishEvent(_ context.Context, e models.TelemetryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) snapshot() []models.TelemetryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TelemetryEvent(nil), r.events...)
}

func at(h, m int) time.Time {
	return time.Date(2024, 6, 3, h, m, 0, 0, time.UTC)
}

func TestParseAndActive(t *testing.T) {
	ws, err := ParseWindows([]config.SessionWindow{
		{Name: "london", Start: "07:00", End: "10:00"},
		{Name: "asia", Start: "23:00", End: "02:00"},
	})
	require.NoError(t, err)

	tests := []struct {
		at   time.Time
		want string
		ok   bool
	}{
		{at(7, 0), "london", true},
		{at(9, 59), "london", true},
		{at(10, 0), "", false},
		{at(23, 30), "asia", true},
		{at(1, 15), "asia", true},
		{at(2, 0), "", false},
	}
	for _, tt := range tests {
		w, ok := Active(ws, tt.at)
		assert.Equal(t, tt.ok, ok, tt.at.Format("15:04"))
		assert.Equal(t, tt.want, w.Name, tt.at.Format("15:04"))
	}

	_, err = ParseWindows([]config.SessionWindow{{Name: "bad", Start: "25:00", End: "26:00"}})
	assert.Error(t, err)
}

func TestMonitorPublishesTransitions(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(at(6, 58))
	rec := &recorder{}
	m := NewMonitor([]Window{{Name: "london", Start: 7 * 60, End: 10 * 60}}, rec, logger.NewNop(), WithClock(clk))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	clk.Add(time.Minute)
	assert.Never(t, func() bool { return len(rec.snapshot()) > 0 }, 20*time.Millisecond, 5*time.Millisecond)

	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	e := rec.snapshot()[0]
	assert.Equal(t, models.EventSessionChange, e.Type)
	assert.Equal(t, "london", e.Payload["to"])
	assert.Equal(t, true, e.Payload["open"])

	name, ok := m.Active(clk.Now())
	assert.True(t, ok)
	assert.Equal(t, "london", name)

	clk.Add(3 * time.Hour)
	require.Eventually(t, func() bool {
		clk.Add(time.Minute)
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, false, rec.snapshot()[1].Payload["open"])
}
