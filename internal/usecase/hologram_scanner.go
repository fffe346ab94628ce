package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
	"FlowHunter/internal/service/hologram"
	scanmetrics "FlowHunter/internal/service/metrics"
	"FlowHunter/internal/services/features"
	"FlowHunter/pkg/config"
	applogger "FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
)

// Volatility uses up to this many 15m returns (15 hours).
const volWindow = 60

type ScannerOption func(*HologramScanner)

func WithScannerClock(clk clock.Clock) ScannerOption {
	return func(s *HologramScanner) { s.clk = clk }
}

// series holds the three timeframes of one symbol.
type series struct {
	symbol         string
	daily, h4, m15 []models.Candle
	err            error
}

// HologramScanner periodically rebuilds the hologram of every configured
// symbol and keeps a ranked watchlist.
type HologramScanner struct {
	candles domrepo.CandleProvider
	engine  *hologram.Engine
	events  domrepo.TelemetryPublisher
	clk     clock.Clock
	l       *applogger.Logger

	cfgMu   sync.RWMutex
	symbols []string
	cfg     config.HologramConfig
	sc      config.StructureConfig

	mu        sync.RWMutex
	watchlist []models.HologramState
	states    map[string]models.HologramState
	lastScan  time.Time
}

func NewHologramScanner(candles domrepo.CandleProvider, engine *hologram.Engine, events domrepo.TelemetryPublisher, symbols []string, cfg config.HologramConfig, sc config.StructureConfig, l *applogger.Logger, opts ...ScannerOption) *HologramScanner {
	s := &HologramScanner{
		candles: candles,
		engine:  engine,
		events:  events,
		clk:     clock.New(),
		l:       l,
		symbols: symbols,
		cfg:     cfg,
		sc:      sc,
		states:  make(map[string]models.HologramState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig applies from the next scan. The running ticker keeps its period.
func (s *HologramScanner) SetConfig(symbols []string, cfg config.HologramConfig, sc config.StructureConfig) {
	s.cfgMu.Lock()
	s.symbols, s.cfg, s.sc = symbols, cfg, sc
	s.cfgMu.Unlock()
	s.engine.SetConfig(cfg, sc)
}

func (s *HologramScanner) config() ([]string, config.HologramConfig, config.StructureConfig) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.symbols, s.cfg, s.sc
}

// Watchlist returns the ranked states of the last scan.
func (s *HologramScanner) Watchlist() []models.HologramState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HologramState, len(s.watchlist))
	copy(out, s.watchlist)
	return out
}

// State returns the state of symbol from the last scan, ranked or not.
func (s *HologramScanner) State(symbol string) (*models.HologramState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[symbol]
	if !ok {
		return nil, false
	}
	return &st, true
}

// LastScan is the time of the last completed scan, zero before the first.
func (s *HologramScanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}

// Run scans immediately and then every ScanInterval until ctx is done.
func (s *HologramScanner) Run(ctx context.Context) error {
	_, cfg, _ := s.config()
	interval := cfg.ScanInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.Scan(ctx)
	t := s.clk.Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Scan(ctx)
		}
	}
}

// Scan fetches every symbol, computes its hologram and replaces the
// watchlist. Symbols whose candles cannot be fetched are skipped.
func (s *HologramScanner) Scan(ctx context.Context) []models.HologramState {
	start := s.clk.Now()
	symbols, cfg, sc := s.config()

	wanted := symbols
	if cfg.ReferenceSymbol != "" && !contains(symbols, cfg.ReferenceSymbol) {
		wanted = append(append([]string(nil), symbols...), cfg.ReferenceSymbol)
	}
	fetched := s.fetchAll(ctx, wanted, cfg.Workers, sc.CandleLimit)

	var ref []models.Candle
	for _, f := range fetched {
		if f.symbol == cfg.ReferenceSymbol && f.err == nil {
			ref = f.m15
		}
	}

	now := s.clk.Now()
	states := make([]models.HologramState, 0, len(symbols))
	for _, f := range fetched {
		if !contains(symbols, f.symbol) {
			continue
		}
		if f.err != nil {
			scanmetrics.ScanErrors.WithLabelValues("fetch").Inc()
			s.l.Warn("hologram fetch failed", applogger.String("symbol", f.symbol), applogger.Error(f.err))
			continue
		}
		var rs float64
		if f.symbol != cfg.ReferenceSymbol {
			v, ok := hologram.RelativeStrength(f.m15, ref, cfg.RSLookback)
			if !ok {
				scanmetrics.ScanErrors.WithLabelValues("rs").Inc()
			}
			rs = v
		}
		st := s.engine.Compute(f.symbol, f.daily, f.h4, f.m15, rs, now)
		st.ATR = features.ATR(f.m15, cfg.ATRPeriod)
		rets := features.ComputeLogReturns(f.m15)
		st.Volatility = features.RealizedVolatility(rets, min(volWindow, len(rets)), features.BarsPerYear(models.TF15m))
		if st.Daily.Insufficient || st.H4.Insufficient || st.M15.Insufficient {
			scanmetrics.ScanErrors.WithLabelValues("insufficient").Inc()
		}
		scanmetrics.AlignmentScore.WithLabelValues(f.symbol).Set(float64(st.Score))
		if cfg.RiskVolatility > 0 && st.Volatility > cfg.RiskVolatility {
			s.publish(ctx, models.TelemetryEvent{
				Type:      models.EventRiskWarning,
				Symbol:    st.Symbol,
				Payload:   map[string]any{"kind": "volatility", "volatility": st.Volatility, "atr": st.ATR},
				Timestamp: now,
			})
		}
		states = append(states, st)
	}

	ranked := Rank(states, cfg.WatchlistSize)
	bySymbol := make(map[string]models.HologramState, len(states))
	for _, st := range states {
		bySymbol[st.Symbol] = st
	}

	s.mu.Lock()
	s.states = bySymbol
	s.watchlist = ranked
	s.lastScan = now
	s.mu.Unlock()

	elapsed := s.clk.Since(start)
	scanmetrics.ScanDuration.Observe(elapsed.Seconds())
	scanmetrics.WatchlistSize.Set(float64(len(ranked)))

	top := make([]string, 0, len(ranked))
	for _, st := range ranked {
		top = append(top, st.Symbol)
	}
	s.l.Info("hologram scan complete",
		applogger.Int("symbols", len(symbols)),
		applogger.Int("scanned", len(states)),
		applogger.Strings("watchlist", top),
		applogger.Duration("duration_ms", elapsed))
	s.publish(ctx, models.TelemetryEvent{
		Type: models.EventScanComplete,
		Payload: map[string]any{
			"scanned":     len(states),
			"watchlist":   top,
			"duration_ms": elapsed.Milliseconds(),
		},
		Timestamp: now,
	})
	return ranked
}

// fetchAll loads the three timeframes per symbol with a bounded pool.
// The result keeps the order of symbols.
func (s *HologramScanner) fetchAll(ctx context.Context, symbols []string, workers, limit int) []series {
	if workers <= 0 {
		workers = 1
	}
	out := make([]series, len(symbols))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(symbols)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.fetch(ctx, symbols[i], limit)
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (s *HologramScanner) fetch(ctx context.Context, symbol string, limit int) series {
	r := series{symbol: symbol}
	if r.daily, r.err = s.candles.GetCandles(ctx, symbol, models.TF1d, limit); r.err != nil {
		return r
	}
	if r.h4, r.err = s.candles.GetCandles(ctx, symbol, models.TF4h, limit); r.err != nil {
		return r
	}
	r.m15, r.err = s.candles.GetCandles(ctx, symbol, models.TF15m, limit)
	return r
}

func (s *HologramScanner) publish(ctx context.Context, e models.TelemetryEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, e); err != nil {
		s.l.Warn("publish event failed", applogger.String("type", string(e.Type)), applogger.Error(err))
	}
}

// Rank orders states by score, then by absolute RS, then by symbol, and
// keeps the first n. Vetoed states rank last.
func Rank(states []models.HologramState, n int) []models.HologramState {
	out := make([]models.HologramState, len(states))
	copy(out, states)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Status == models.StatusVeto) != (b.Status == models.StatusVeto) {
			return b.Status == models.StatusVeto
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if abs(a.RS) != abs(b.RS) {
			return abs(a.RS) > abs(b.RS)
		}
		return a.Symbol < b.Symbol
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
