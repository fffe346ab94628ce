package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
)

type candleKey struct {
	symbol string
	tf     models.Timeframe
}

type fakeCandles struct {
	mu    sync.Mutex
	data  map[candleKey][]models.Candle
	fail  map[string]error
	calls int
}

func newFakeCandles() *fakeCandles {
	return &fakeCandles{data: map[candleKey][]models.Candle{}, fail: map[string]error{}}
}

func (f *fakeCandles) set(symbol string, tf models.Timeframe, cs []models.Candle) {
	f.mu.Lock()
	f.data[candleKey{symbol, tf}] = cs
	f.mu.Unlock()
}

func (f *fakeCandles) GetCandles(_ context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	cs, ok := f.data[candleKey{symbol, tf}]
	if !ok {
		return nil, fmt.Errorf("no data for %s %s", symbol, tf)
	}
	if len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return cs, nil
}

func (f *fakeCandles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.TelemetryEvent
}

func (r *eventRecorder) PublishEvent(_ context.Context, e models.TelemetryEvent) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) ofType(t models.EventType) []models.TelemetryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TelemetryEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// zigzag builds n bars stepping by drift with a swing of amp every other bar.
func zigzag(start time.Time, step time.Duration, n int, base, drift, amp float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		mid := base + drift*float64(i)
		if i%4 == 1 {
			mid += amp
		} else if i%4 == 3 {
			mid -= amp
		}
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      mid - drift/2,
			High:      mid + amp/4,
			Low:       mid - amp/4,
			Close:     mid,
			Volume:    100,
		}
	}
	return out
}
