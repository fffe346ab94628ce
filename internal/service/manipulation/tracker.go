package manipulation

import (
	"math"
	"time"

	"FlowHunter/internal/domain/models"
)

// mark is the flagged venue of one window period. An empty venue marks a
// clean period.
type mark struct {
	period int64
	venue  models.Venue
}

// tracker remembers which venue was flagged in each of the last n window
// periods per series. A period is one window length of wall time, so the
// overlapping evaluations of a sliding window count once.
type tracker struct {
	n       int
	history map[string][]mark
}

func newTracker(n int) *tracker {
	if n <= 0 {
		n = 10
	}
	return &tracker{n: n, history: make(map[string][]mark)}
}

func periodOf(window time.Duration, at time.Time) int64 {
	if window <= 0 {
		return at.UnixNano()
	}
	return at.UnixNano() / int64(window)
}

// record stores v for the period containing at. A later evaluation in the
// same period replaces the earlier one. Skipped periods count as clean.
func (t *tracker) record(series string, window time.Duration, at time.Time, v models.Venue) {
	p := periodOf(window, at)
	h := t.history[series]
	if len(h) > 0 {
		last := h[len(h)-1].period
		switch {
		case p < last:
			return
		case p == last:
			h[len(h)-1].venue = v
			t.history[series] = h
			return
		}
		for gap := min(p-last-1, int64(t.n)); gap > 0; gap-- {
			h = append(h, mark{period: p - gap})
		}
	}
	h = append(h, mark{period: p, venue: v})
	if len(h) > t.n {
		h = h[len(h)-t.n:]
	}
	t.history[series] = h
}

// sustained returns the venue flagged in at least ratio of the last n periods.
func (t *tracker) sustained(series string, ratio float64) (models.Venue, bool) {
	need := int(math.Ceil(ratio * float64(t.n)))
	if need < 1 {
		need = 1
	}
	counts := make(map[models.Venue]int)
	for _, m := range t.history[series] {
		if m.venue == "" {
			continue
		}
		counts[m.venue]++
		if counts[m.venue] >= need {
			return m.venue, true
		}
	}
	return "", false
}
