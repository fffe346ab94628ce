package cvd

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/domain/repository"
	"FlowHunter/internal/domain/service"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithClock(clk clock.Clock) Option {
	return func(a *Aggregator) { a.clk = clk }
}

func WithMetrics(m repository.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithAnalyzer attaches a manipulation analysis to every published snapshot.
func WithAnalyzer(fa service.FlowAnalyzer) Option {
	return func(a *Aggregator) { a.analyzer = fa }
}

type snapKey struct {
	symbol string
	window time.Duration
}

// view is what readers see. It is replaced wholesale on every tick.
type view struct {
	snaps  map[snapKey]*models.CVDSnapshot
	prices map[string]float64
}

// Aggregator fuses per-venue trade history into cross-venue CVD snapshots.
// A single goroutine (Run) owns the history; producers reach it only through
// Ingest and SetStatus, readers only through published snapshots.
type Aggregator struct {
	log      *logger.Logger
	clk      clock.Clock
	metrics  repository.Metrics
	analyzer service.FlowAnalyzer
	venues   []models.Venue

	in      chan models.Trade
	ops     chan func()
	dropped atomic.Uint64
	current atomic.Pointer[view]

	// owned by Run
	cfg     config.AggregatorConfig
	mode    WeightMode
	fixed   map[models.Venue]float64
	shares  map[models.Venue]float64
	status  map[models.Venue]models.ConnStatus
	history map[string]map[models.Venue]*tradeLog
	prices  map[string]float64
}

// NewAggregator builds an aggregator expecting the given venues.
func NewAggregator(cfg config.AggregatorConfig, venues []models.Venue, log *logger.Logger, opts ...Option) (*Aggregator, error) {
	mode, err := ParseWeightMode(cfg.WeightMode)
	if err != nil {
		return nil, err
	}
	if len(cfg.Windows) == 0 {
		return nil, fmt.Errorf("aggregator: no windows configured")
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 8192
	}
	a := &Aggregator{
		log:     log.With(logger.String("component", "cvd")),
		clk:     clock.New(),
		venues:  dedupVenues(venues),
		in:      make(chan models.Trade, cfg.BufferSize),
		ops:     make(chan func(), 256),
		cfg:     cfg,
		mode:    mode,
		fixed:   fixedTable(cfg.FixedWeights),
		shares:  make(map[models.Venue]float64),
		status:  make(map[models.Venue]models.ConnStatus),
		history: make(map[string]map[models.Venue]*tradeLog),
		prices:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.current.Store(&view{snaps: map[snapKey]*models.CVDSnapshot{}, prices: map[string]float64{}})
	return a, nil
}

// Ingest enqueues a trade without blocking. When the queue is full the
// oldest queued trade is discarded.
func (a *Aggregator) Ingest(t models.Trade) {
	for {
		select {
		case a.in <- t:
			return
		default:
		}
		select {
		case <-a.in:
			a.dropped.Add(1)
			if a.metrics != nil {
				a.metrics.RecordError("aggregator_overflow")
			}
		default:
		}
	}
}

// Dropped returns how many trades were discarded on overflow.
func (a *Aggregator) Dropped() uint64 { return a.dropped.Load() }

// SetStatus records a venue connectivity change.
func (a *Aggregator) SetStatus(v models.Venue, s models.ConnStatus) {
	a.ops <- func() { a.status[v] = s }
}

// SetConfig swaps the tunables. They take effect on the next tick.
func (a *Aggregator) SetConfig(cfg config.AggregatorConfig) error {
	mode, err := ParseWeightMode(cfg.WeightMode)
	if err != nil {
		return err
	}
	a.ops <- func() {
		a.mode = mode
		a.fixed = fixedTable(cfg.FixedWeights)
		if len(cfg.Windows) > 0 {
			a.cfg.Windows = cfg.Windows
		}
		a.cfg.ReferenceNotional = cfg.ReferenceNotional
		a.cfg.DynamicAlpha = cfg.DynamicAlpha
	}
	return nil
}

// Snapshot returns the last published snapshot for symbol and window.
func (a *Aggregator) Snapshot(symbol string, window time.Duration) (*models.CVDSnapshot, bool) {
	s, ok := a.current.Load().snaps[snapKey{symbol, window}]
	return s, ok
}

// LastPrice returns the last published trade price for symbol.
func (a *Aggregator) LastPrice(symbol string) (float64, bool) {
	p, ok := a.current.Load().prices[symbol]
	return p, ok
}

// Compute builds a snapshot for an arbitrary window on the writer goroutine.
// Trades ingested before the call are included.
func (a *Aggregator) Compute(ctx context.Context, symbol string, window time.Duration) (*models.CVDSnapshot, error) {
	if window <= 0 {
		return nil, fmt.Errorf("compute: window must be positive")
	}
	reply := make(chan *models.CVDSnapshot, 1)
	op := func() { reply <- a.build(symbol, window, a.clk.Now()) }
	select {
	case a.ops <- op:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drains trades and publishes snapshots every EvalInterval until ctx
// is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	t := a.clk.Ticker(a.cfg.EvalInterval)
	defer t.Stop()
	a.log.Info("cvd aggregator started",
		logger.String("weight_mode", string(a.mode)),
		logger.Int("venues", len(a.venues)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case tr := <-a.in:
			a.apply(tr)
		case op := <-a.ops:
			a.drain()
			op()
		case <-t.C:
			a.drain()
			a.publish(a.clk.Now())
		}
	}
}

func (a *Aggregator) drain() {
	for {
		select {
		case tr := <-a.in:
			a.apply(tr)
		default:
			return
		}
	}
}

func (a *Aggregator) apply(t models.Trade) {
	if t.Symbol == "" || t.Price <= 0 || t.Quantity <= 0 {
		return
	}
	byVenue, ok := a.history[t.Symbol]
	if !ok {
		byVenue = make(map[models.Venue]*tradeLog)
		a.history[t.Symbol] = byVenue
	}
	l, ok := byVenue[t.Venue]
	if !ok {
		l = &tradeLog{}
		byVenue[t.Venue] = l
	}
	l.push(t)
	a.prices[t.Symbol] = t.Price
}

func (a *Aggregator) retention() time.Duration {
	var r time.Duration
	for _, w := range a.cfg.Windows {
		r = max(r, w)
	}
	return r
}

func (a *Aggregator) publish(now time.Time) {
	start := a.clk.Now()
	cutoff := now.Add(-a.retention())
	for sym, byVenue := range a.history {
		for v, l := range byVenue {
			l.evict(cutoff)
			if l.empty() {
				delete(byVenue, v)
			}
		}
		if len(byVenue) == 0 {
			delete(a.history, sym)
		}
	}

	if a.mode == WeightDynamic {
		a.shares = updateShares(a.shares, a.flows("", a.retention(), now), a.cfg.DynamicAlpha)
	}

	next := &view{
		snaps:  make(map[snapKey]*models.CVDSnapshot, len(a.history)*len(a.cfg.Windows)),
		prices: make(map[string]float64, len(a.prices)),
	}
	for sym, p := range a.prices {
		next.prices[sym] = p
		if a.metrics != nil {
			a.metrics.RecordLastPrice(sym, p)
		}
	}
	for sym := range a.history {
		for _, w := range a.cfg.Windows {
			s := a.build(sym, w, now)
			if a.analyzer != nil {
				m := a.analyzer.Analyze(fmt.Sprintf("%s/%s", sym, w), w, now, s.Flows)
				s.Manipulation = &m
			}
			next.snaps[snapKey{sym, w}] = s
		}
	}
	a.current.Store(next)
	if a.metrics != nil {
		a.metrics.RecordLatency("cvd_publish", a.clk.Since(start).Seconds())
	}
}

// flows sums the window for symbol, or for all symbols when symbol is empty.
func (a *Aggregator) flows(symbol string, window time.Duration, now time.Time) []models.ExchangeFlow {
	from := now.Add(-window)
	acc := make(map[models.Venue]*models.ExchangeFlow, len(a.venues))
	for _, v := range a.venues {
		acc[v] = &models.ExchangeFlow{Venue: v}
	}
	for sym, byVenue := range a.history {
		if symbol != "" && sym != symbol {
			continue
		}
		for v, l := range byVenue {
			f, ok := acc[v]
			if !ok {
				f = &models.ExchangeFlow{Venue: v}
				acc[v] = f
			}
			l.sum(from, f)
		}
	}

	out := make([]models.ExchangeFlow, 0, len(acc))
	for v, f := range acc {
		f.Status = a.statusOf(v)
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Venue < out[j].Venue })
	return out
}

func (a *Aggregator) statusOf(v models.Venue) models.ConnStatus {
	if s, ok := a.status[v]; ok {
		return s
	}
	return models.StatusDisconnected
}

func (a *Aggregator) build(symbol string, window time.Duration, now time.Time) *models.CVDSnapshot {
	table := a.fixed
	if a.mode == WeightDynamic {
		table = a.shares
	}
	flows := ComputeWeights(a.mode, a.flows(symbol, window, now), table)

	var total float64
	for _, f := range flows {
		if f.Connected() {
			total += f.Volume
		}
	}
	return &models.CVDSnapshot{
		Symbol:        symbol,
		Window:        window,
		AggregatedCVD: Aggregate(flows),
		TotalVolume:   total,
		Flows:         flows,
		Consensus:     Consensus(flows),
		Confidence:    Confidence(flows, len(a.venues), a.cfg.ReferenceNotional),
		Timestamp:     now,
	}
}

func fixedTable(in map[string]float64) map[models.Venue]float64 {
	out := make(map[models.Venue]float64, len(in))
	for k, v := range in {
		out[models.Venue(k)] = v
	}
	return out
}

func dedupVenues(in []models.Venue) []models.Venue {
	seen := make(map[models.Venue]bool, len(in))
	out := make([]models.Venue, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
