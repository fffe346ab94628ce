package exchange

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/domain/repository"
	"FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

var errWatchdog = errors.New("no message within timeout")

// Config describes one (venue, product) connection.
type Config struct {
	Venue                models.Venue
	Product              models.Product
	URL                  string
	Symbols              []string
	PingInterval         time.Duration
	MessageTimeout       time.Duration
	MaxReconnectAttempts int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	Jitter               float64
	BufferSize           int
	StaleAfter           time.Duration
}

func (c *Config) setDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = 30 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Second
	}
}

// Option configures a StreamClient.
type Option func(*StreamClient)

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *StreamClient) { c.clk = clk }
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *StreamClient) { c.dialer = d }
}

// WithMetrics reports health and trade counters to m.
func WithMetrics(m repository.Metrics) Option {
	return func(c *StreamClient) { c.metrics = m }
}

// StreamClient keeps one venue WebSocket alive and emits canonical trades.
// Run owns the connection; every other method is safe for concurrent use.
type StreamClient struct {
	cfg     Config
	adapter Adapter
	log     *logger.Logger
	clk     clock.Clock
	dialer  *websocket.Dialer
	metrics repository.Metrics
	wanted  map[string]bool

	trades chan models.Trade
	events chan HealthEvent

	state    atomic.Int32
	dropped  atomic.Uint64
	received atomic.Uint64

	mu          sync.Mutex
	connectedAt time.Time
	lastMessage time.Time
	pingSentAt  time.Time
	latency     time.Duration
	msgsPerSec  float64
	attempts    int
	reconnects  int
}

// NewStreamClient builds a client for cfg. The URL defaults to the
// adapter's public endpoint.
func NewStreamClient(cfg Config, adapter Adapter, log *logger.Logger, opts ...Option) *StreamClient {
	cfg.setDefaults()
	if cfg.URL == "" {
		cfg.URL = adapter.URL(cfg.Product)
	}
	c := &StreamClient{
		cfg:     cfg,
		adapter: adapter,
		log:     log.With(logger.String("venue", string(cfg.Venue)), logger.String("product", string(cfg.Product))),
		clk:     clock.New(),
		dialer:  websocket.DefaultDialer,
		wanted:  make(map[string]bool, len(cfg.Symbols)),
		trades:  make(chan models.Trade, cfg.BufferSize),
		events:  make(chan HealthEvent, 64),
	}
	for _, s := range cfg.Symbols {
		c.wanted[s] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trades is closed when Run returns.
func (c *StreamClient) Trades() <-chan models.Trade { return c.trades }

// Events is closed when Run returns.
func (c *StreamClient) Events() <-chan HealthEvent { return c.events }

func (c *StreamClient) State() ConnState { return ConnState(c.state.Load()) }

func (c *StreamClient) Venue() models.Venue { return c.cfg.Venue }

func (c *StreamClient) Product() models.Product { return c.cfg.Product }

func (c *StreamClient) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clk.Now()
	h := Health{
		Venue:             c.cfg.Venue,
		Product:           c.cfg.Product,
		State:             c.State(),
		LatencyMs:         float64(c.latency) / float64(time.Millisecond),
		MsgsPerSec:        c.msgsPerSec,
		ReconnectAttempts: c.attempts,
		TotalReconnects:   c.reconnects,
		LastMessage:       c.lastMessage,
		Dropped:           c.dropped.Load(),
	}
	if h.State == StateConnected && !c.connectedAt.IsZero() {
		h.UptimeSec = now.Sub(c.connectedAt).Seconds()
	}
	h.Stale = c.lastMessage.IsZero() || now.Sub(c.lastMessage) > c.cfg.StaleAfter
	return h
}

// Run connects and keeps reconnecting until ctx is cancelled (nil) or the
// reconnect budget is spent (a ConnectivityError wrapping ErrMaxReconnects).
func (c *StreamClient) Run(ctx context.Context) error {
	defer close(c.events)
	defer close(c.trades)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BaseDelay
	bo.MaxInterval = c.cfg.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = c.cfg.Jitter
	bo.MaxElapsedTime = 0
	bo.Clock = c.clk
	bo.Reset()

	c.setState(StateConnecting, "")
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected, "shutdown")
			return nil
		}
		if connected {
			bo.Reset()
		}
		c.mu.Lock()
		c.attempts++
		c.reconnects++
		attempts := c.attempts
		c.mu.Unlock()

		if attempts > c.cfg.MaxReconnectAttempts {
			c.log.Error("stream gave up reconnecting", logger.Int("attempts", attempts-1), logger.Error(err))
			c.terminal(ctx, err)
			return &models.ConnectivityError{Venue: c.cfg.Venue, Product: c.cfg.Product, Op: "reconnect", Err: models.ErrMaxReconnects}
		}

		wait := bo.NextBackOff()
		c.log.Warn("stream disconnected",
			logger.Error(err),
			logger.Int("attempt", attempts),
			logger.Duration("backoff_ms", wait))
		c.setState(StateReconnecting, errString(err))
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected, "shutdown")
			return nil
		case <-c.clk.After(wait):
		}
	}
}

// session runs one connection until it fails. connected reports whether
// the subscription went through.
func (c *StreamClient) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return false, &models.ConnectivityError{Venue: c.cfg.Venue, Product: c.cfg.Product, Op: "dial", Err: err}
	}
	defer conn.Close()

	frames, err := c.adapter.Subscribe(c.cfg.Symbols, c.cfg.Product)
	if err != nil {
		return false, err
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
			return false, &models.ConnectivityError{Venue: c.cfg.Venue, Product: c.cfg.Product, Op: "subscribe", Err: err}
		}
	}

	now := c.clk.Now()
	c.mu.Lock()
	c.connectedAt = now
	c.lastMessage = now
	c.attempts = 0
	c.mu.Unlock()
	c.setState(StateConnected, "")
	c.log.Info("stream subscribed", logger.Strings("symbols", c.cfg.Symbols))

	conn.SetPongHandler(func(string) error {
		c.onPong()
		return nil
	})

	sessCtx, cancel := context.WithCancel(ctx)
	var fired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.heartbeat(sessCtx, conn, &fired)
	}()

	err = c.readLoop(conn)
	cancel()
	<-done
	if fired.Load() {
		err = &models.ConnectivityError{Venue: c.cfg.Venue, Product: c.cfg.Product, Op: "watchdog", Err: errWatchdog}
	}
	return true, err
}

func (c *StreamClient) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return &models.ConnectivityError{Venue: c.cfg.Venue, Product: c.cfg.Product, Op: "read", Err: err}
		}
		c.touch()
		if c.adapter.IsPong(data) {
			c.onPong()
			continue
		}
		trades, err := c.adapter.Parse(data, c.cfg.Product)
		if err != nil {
			c.recordError("parse_" + string(c.cfg.Venue))
			continue
		}
		for _, t := range trades {
			if len(c.wanted) > 0 && !c.wanted[t.Symbol] {
				continue
			}
			select {
			case c.trades <- t:
				if c.metrics != nil {
					c.metrics.RecordTrade(string(t.Venue), t.Symbol)
				}
			default:
				c.dropped.Add(1)
			}
		}
	}
}

// heartbeat pings on a fixed interval and closes the socket when the
// feed has gone quiet for longer than MessageTimeout.
func (c *StreamClient) heartbeat(ctx context.Context, conn *websocket.Conn, fired *atomic.Bool) {
	t := c.clk.Ticker(c.cfg.PingInterval)
	defer t.Stop()
	lastTick := c.clk.Now()
	lastCount := c.received.Load()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case now := <-t.C:
			count := c.received.Load()
			c.mu.Lock()
			if elapsed := now.Sub(lastTick).Seconds(); elapsed > 0 {
				c.msgsPerSec = float64(count-lastCount) / elapsed
			}
			quiet := now.Sub(c.lastMessage)
			c.pingSentAt = now
			c.mu.Unlock()
			lastTick, lastCount = now, count
			c.reportHealth()

			if quiet > c.cfg.MessageTimeout {
				fired.Store(true)
				c.setState(StateDegraded, errWatchdog.Error())
				_ = conn.Close()
				return
			}
			if err := c.ping(conn); err != nil {
				c.log.Debug("ping failed", logger.Error(err))
			}
		}
	}
}

func (c *StreamClient) ping(conn *websocket.Conn) error {
	if frame := c.adapter.Ping(); frame != nil {
		return conn.WriteMessage(websocket.TextMessage, frame)
	}
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (c *StreamClient) touch() {
	c.received.Add(1)
	c.mu.Lock()
	c.lastMessage = c.clk.Now()
	c.mu.Unlock()
}

func (c *StreamClient) onPong() {
	c.mu.Lock()
	now := c.clk.Now()
	c.lastMessage = now
	if !c.pingSentAt.IsZero() {
		c.latency = now.Sub(c.pingSentAt)
	}
	c.mu.Unlock()
}

func (c *StreamClient) setState(to ConnState, reason string) {
	from := ConnState(c.state.Swap(int32(to)))
	if from == to {
		return
	}
	c.emit(HealthEvent{
		Venue:     c.cfg.Venue,
		Product:   c.cfg.Product,
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: c.clk.Now(),
	})
	c.reportHealth()
}

func (c *StreamClient) emit(e HealthEvent) {
	select {
	case c.events <- e:
	default:
		c.log.Warn("health event dropped", logger.String("to", e.To.String()))
	}
}

// terminal publishes the give-up event. It blocks so the event is never
// lost to a full buffer.
func (c *StreamClient) terminal(ctx context.Context, err error) {
	from := ConnState(c.state.Swap(int32(StateDisconnected)))
	e := HealthEvent{
		Venue:     c.cfg.Venue,
		Product:   c.cfg.Product,
		From:      from,
		To:        StateDisconnected,
		Terminal:  true,
		Reason:    errString(err),
		Timestamp: c.clk.Now(),
	}
	select {
	case c.events <- e:
	case <-ctx.Done():
	}
	c.reportHealth()
}

func (c *StreamClient) reportHealth() {
	if c.metrics == nil {
		return
	}
	h := c.Health()
	c.metrics.RecordStreamHealth(string(h.Venue), string(h.Product), int(h.State), h.LatencyMs, h.MsgsPerSec, h.UptimeSec, h.ReconnectAttempts)
}

func (c *StreamClient) recordError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
