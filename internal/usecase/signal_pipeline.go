package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
	domsvc "FlowHunter/internal/domain/service"
	"FlowHunter/internal/service/halt"
	"FlowHunter/internal/service/hologram"
	scanmetrics "FlowHunter/internal/service/metrics"
	"FlowHunter/internal/service/structure"
	"FlowHunter/pkg/cache"
	"FlowHunter/pkg/config"
	applogger "FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	GateHalt         = "halt"
	GateStatus       = "status"
	GateDirection    = "direction"
	GateSession      = "session"
	GatePOI          = "poi"
	GateManipulation = "manipulation"
)

// Stops sit at least half an ATR beyond the zone.
const atrStopMultiple = 0.5

var signalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:flowhunter:signal"))

// SignalID is stable for one setup: the same symbol, direction and
// hologram timestamp always produce the same ID.
func SignalID(symbol string, dir models.Direction, at time.Time) string {
	name := symbol + "|" + string(dir) + "|" + strconv.FormatInt(at.UnixNano(), 10)
	return uuid.NewSHA1(signalNamespace, []byte(name)).String()
}

// EvaluationInput is everything one evaluation looks at.
type EvaluationInput struct {
	Hologram    models.HologramState
	Snapshot    *models.CVDSnapshot
	Price       float64
	IsReference bool
	Halted      bool
	HaltReason  string
	Session     string
	InSession   bool
	Now         time.Time
	Config      config.PipelineConfig
}

// Evaluate runs the gates in order and stops at the first failure. It has
// no side effects.
func Evaluate(in EvaluationInput) models.Decision {
	st := in.Hologram
	d := models.Decision{Symbol: st.Symbol}
	pass := func(gate, detail string) {
		d.Gates = append(d.Gates, models.GateResult{Gate: gate, Passed: true, Detail: detail})
	}
	fail := func(gate, detail string) models.Decision {
		d.Gates = append(d.Gates, models.GateResult{Gate: gate, Passed: false, Detail: detail})
		d.Suppressed = gate
		return d
	}

	if in.Halted {
		return fail(GateHalt, in.HaltReason)
	}
	pass(GateHalt, "")

	if !st.Status.Tradeable() {
		return fail(GateStatus, fmt.Sprintf("status %s score %d", st.Status, st.Score))
	}
	pass(GateStatus, string(st.Status))

	dir := st.Direction
	if dir == models.DirectionNone {
		return fail(GateDirection, "no directional bias")
	}
	if !hologram.CheckRS(dir, st.RS, in.IsReference) {
		return fail(GateDirection, fmt.Sprintf("%s with rs %.2f", dir, st.RS))
	}
	pass(GateDirection, string(dir))

	if !in.InSession {
		return fail(GateSession, "outside session windows")
	}
	pass(GateSession, in.Session)

	if in.Price <= 0 {
		return fail(GatePOI, "no price")
	}
	poi, ok := structure.NearestPOI(st.M15.POIs, dir, in.Price)
	if !ok {
		return fail(GatePOI, "no "+string(dir)+" zone")
	}
	if dist := poi.Distance(in.Price); dist > in.Config.POITolerance {
		return fail(GatePOI, fmt.Sprintf("%s %.4f away", poi.Kind, dist))
	}
	pass(GatePOI, string(poi.Kind))

	if in.Snapshot == nil {
		return fail(GateManipulation, "no flow snapshot")
	}
	rec := models.RecommendProceed
	if m := in.Snapshot.Manipulation; m != nil {
		rec = m.Recommendation
	}
	if rec == models.RecommendVeto {
		return fail(GateManipulation, string(in.Snapshot.Manipulation.Pattern))
	}
	pass(GateManipulation, string(rec))

	confidence := float64(st.Score)
	if rec == models.RecommendCaution {
		confidence *= 1 - in.Config.CautionPenalty
	}
	sig := buildSignal(st, poi, in.Price, confidence, in.Config)
	sig.Timestamp = in.Now
	d.Emit = true
	d.Signal = sig
	return d
}

func buildSignal(st models.HologramState, poi models.POI, price, confidence float64, cfg config.PipelineConfig) *models.Signal {
	buffer := math.Max(cfg.StopBuffer*price, atrStopMultiple*st.ATR)
	zone := models.Zone{Low: poi.Low, High: poi.High}
	entry := zone.Mid()

	var stop float64
	if st.Direction == models.DirectionLong {
		stop = zone.Low - buffer
	} else {
		stop = zone.High + buffer
	}
	risk := math.Abs(entry - stop)

	targets := make([]float64, 0, len(cfg.TargetRMultiples))
	for _, r := range cfg.TargetRMultiples {
		if st.Direction == models.DirectionLong {
			targets = append(targets, entry+r*risk)
		} else {
			targets = append(targets, entry-r*risk)
		}
	}

	lev := cfg.LeverageB
	if st.Status == models.StatusAPlus {
		lev = cfg.LeverageAPlus
	}
	return &models.Signal{
		SignalID:    SignalID(st.Symbol, st.Direction, st.Timestamp),
		Symbol:      st.Symbol,
		Direction:   st.Direction,
		EntryZone:   zone,
		StopLoss:    stop,
		TakeProfits: targets,
		Confidence:  math.Round(confidence*100) / 100,
		Leverage:    lev,
	}
}

// SessionClock reports the active trading session.
type SessionClock interface {
	Active(t time.Time) (string, bool)
}

// HaltState reports the operator halt switch.
type HaltState interface {
	Status() halt.Status
}

// Dispatcher delivers a signal to the execution gateway.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *models.Signal) error
}

type PipelineOption func(*SignalPipeline)

func WithPipelineClock(clk clock.Clock) PipelineOption {
	return func(p *SignalPipeline) { p.clk = clk }
}

// SignalPipeline evaluates every watchlist entry against live flow on a
// fixed cadence and dispatches the signals that pass.
type SignalPipeline struct {
	holograms  domsvc.HologramSource
	flows      domsvc.FlowSource
	sessions   SessionClock
	halt       HaltState
	dispatcher Dispatcher
	sent       cache.Service
	events     domrepo.TelemetryPublisher
	metrics    domrepo.Metrics
	clk        clock.Clock
	l          *applogger.Logger

	mu        sync.RWMutex
	cfg       config.PipelineConfig
	reference string
}

func NewSignalPipeline(
	holograms domsvc.HologramSource,
	flows domsvc.FlowSource,
	sessions SessionClock,
	haltState HaltState,
	dispatcher Dispatcher,
	sent cache.Service,
	events domrepo.TelemetryPublisher,
	metrics domrepo.Metrics,
	cfg config.PipelineConfig,
	reference string,
	l *applogger.Logger,
	opts ...PipelineOption,
) *SignalPipeline {
	p := &SignalPipeline{
		holograms:  holograms,
		flows:      flows,
		sessions:   sessions,
		halt:       haltState,
		dispatcher: dispatcher,
		sent:       sent,
		events:     events,
		metrics:    metrics,
		clk:        clock.New(),
		l:          l,
		cfg:        cfg,
		reference:  reference,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetConfig applies from the next cycle.
func (p *SignalPipeline) SetConfig(cfg config.PipelineConfig, reference string) {
	p.mu.Lock()
	p.cfg, p.reference = cfg, reference
	p.mu.Unlock()
}

func (p *SignalPipeline) config() (config.PipelineConfig, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.reference
}

// Run evaluates every EvalInterval until ctx is done.
func (p *SignalPipeline) Run(ctx context.Context) error {
	cfg, _ := p.config()
	interval := cfg.EvalInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := p.clk.Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.Cycle(ctx)
		}
	}
}

// Input assembles the evaluation input for one hologram state.
func (p *SignalPipeline) Input(st models.HologramState) EvaluationInput {
	cfg, ref := p.config()
	now := p.clk.Now()
	hs := p.halt.Status()
	session, open := p.sessions.Active(now)

	in := EvaluationInput{
		Hologram:    st,
		IsReference: st.Symbol == ref,
		Halted:      hs.Halted,
		HaltReason:  hs.Reason,
		Session:     session,
		InSession:   open,
		Now:         now,
		Config:      cfg,
	}
	if snap, ok := p.flows.Snapshot(st.Symbol, cfg.CVDWindow); ok {
		in.Snapshot = snap
	}
	if px, ok := p.flows.LastPrice(st.Symbol); ok {
		in.Price = px
	} else {
		in.Price = st.M15.Price
	}
	return in
}

// Cycle evaluates the current watchlist once and returns every decision.
func (p *SignalPipeline) Cycle(ctx context.Context) []models.Decision {
	cfg, _ := p.config()
	watch := p.holograms.Watchlist()
	out := make([]models.Decision, 0, len(watch))
	for _, st := range watch {
		in := p.Input(st)
		p.report(ctx, in)

		d := Evaluate(in)
		p.metrics.RecordSignal(st.Symbol, string(st.Direction), d.Emit)
		if d.Emit {
			p.emit(ctx, d.Signal, cfg.DedupTTL)
		} else if snap := in.Snapshot; d.Suppressed == GateManipulation && snap != nil && snap.Manipulation != nil {
			p.l.Warn("signal vetoed by manipulation check",
				applogger.String("symbol", st.Symbol),
				applogger.String("direction", string(st.Direction)),
				applogger.String("pattern", string(snap.Manipulation.Pattern)),
				applogger.String("venue", string(snap.Manipulation.SuspectVenue)),
				applogger.Float64("confidence", snap.Manipulation.Confidence))
		} else {
			p.l.Debug("signal suppressed",
				applogger.String("symbol", st.Symbol),
				applogger.String("gate", d.Suppressed))
		}
		out = append(out, d)
	}
	return out
}

// emit dispatches s once per DedupTTL. A failed dispatch releases the
// claim so the next cycle retries.
func (p *SignalPipeline) emit(ctx context.Context, s *models.Signal, ttl time.Duration) {
	key := cache.Key("signal", s.SignalID)
	won, err := p.sent.TryLock(ctx, key, ttl)
	if err != nil {
		p.l.Warn("signal dedup unavailable", applogger.Error(err))
	} else if !won {
		return
	}
	if err := p.dispatcher.Dispatch(ctx, s); err != nil {
		p.l.Error("signal dispatch failed",
			applogger.String("signal_id", s.SignalID),
			applogger.String("symbol", s.Symbol),
			applogger.Error(err))
		p.metrics.RecordError("dispatch")
		_ = p.sent.Delete(ctx, key)
		return
	}
	p.l.Info("signal emitted",
		applogger.String("signal_id", s.SignalID),
		applogger.String("symbol", s.Symbol),
		applogger.String("direction", string(s.Direction)),
		applogger.Float64("confidence", s.Confidence))
}

// report publishes manipulation telemetry for the evaluated window.
func (p *SignalPipeline) report(ctx context.Context, in EvaluationInput) {
	if in.Snapshot == nil || in.Snapshot.Manipulation == nil || p.events == nil {
		return
	}
	m := in.Snapshot.Manipulation
	sym := in.Hologram.Symbol
	scanmetrics.ManipulationConfidence.WithLabelValues(sym).Set(m.Confidence)

	if m.Detected {
		p.publish(ctx, models.TelemetryEvent{
			Type:   models.EventManipulationDetected,
			Symbol: sym,
			Payload: map[string]any{
				"pattern":        string(m.Pattern),
				"suspect_venue":  string(m.SuspectVenue),
				"confidence":     m.Confidence,
				"recommendation": string(m.Recommendation),
				"reasoning":      m.Reasoning,
			},
			Timestamp: in.Now,
		})
	}
	if m.Divergence.HasDivergence {
		lag := make([]string, 0, len(m.Divergence.Lagging))
		for _, v := range m.Divergence.Lagging {
			lag = append(lag, string(v))
		}
		p.publish(ctx, models.TelemetryEvent{
			Type:   models.EventDivergenceAlert,
			Symbol: sym,
			Payload: map[string]any{
				"leader":  string(m.Divergence.Leader),
				"lagging": lag,
				"score":   m.Divergence.Score,
			},
			Timestamp: in.Now,
		})
	}
}

func (p *SignalPipeline) publish(ctx context.Context, e models.TelemetryEvent) {
	if err := p.events.PublishEvent(ctx, e); err != nil {
		p.l.Warn("publish event failed", applogger.String("type", string(e.Type)), applogger.Error(err))
	}
}
