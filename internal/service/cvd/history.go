package cvd

import (
	"time"

	"FlowHunter/internal/domain/models"
)

// tradeLog is one venue's trades for one symbol in arrival order.
type tradeLog struct {
	trades []models.Trade
	head   int
}

func (l *tradeLog) push(t models.Trade) {
	l.trades = append(l.trades, t)
}

func (l *tradeLog) empty() bool { return l.head >= len(l.trades) }

// evict drops trades older than cutoff from the front. Arrival order is
// close to time order, so a late straggler survives until it reaches the head.
func (l *tradeLog) evict(cutoff time.Time) {
	for l.head < len(l.trades) && l.trades[l.head].Timestamp.Before(cutoff) {
		l.trades[l.head] = models.Trade{}
		l.head++
	}
	if l.head > 0 && l.head*2 >= len(l.trades) {
		n := copy(l.trades, l.trades[l.head:])
		l.trades = l.trades[:n]
		l.head = 0
	}
}

// sum accumulates trades at or after from into f.
func (l *tradeLog) sum(from time.Time, f *models.ExchangeFlow) {
	for i := len(l.trades) - 1; i >= l.head; i-- {
		t := l.trades[i]
		if t.Timestamp.Before(from) {
			continue
		}
		f.CVD += t.Delta()
		f.Volume += t.Notional()
		f.TradeCount++
		if t.Timestamp.After(f.LastUpdate) {
			f.LastUpdate = t.Timestamp
		}
	}
}
