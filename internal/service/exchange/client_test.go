package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const binanceTrade = `{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","a":1,"p":"100.5","q":"2","T":1700000000000,"m":false}}`

func newWSServer(t *testing.T, handle func(n int, conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(int(conns.Add(1)), conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &conns
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testConfig(url string) Config {
	return Config{
		Venue:                models.VenueBinance,
		Product:              models.ProductSpot,
		URL:                  url,
		Symbols:              []string{"BTCUSDT"},
		PingInterval:         time.Hour,
		MessageTimeout:       time.Hour,
		MaxReconnectAttempts: 3,
		BaseDelay:            5 * time.Millisecond,
		MaxDelay:             20 * time.Millisecond,
		BufferSize:           16,
	}
}

func runClient(t *testing.T, c *StreamClient) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func recvTrade(t *testing.T, c *StreamClient) models.Trade {
	t.Helper()
	select {
	case tr, ok := <-c.Trades():
		require.True(t, ok, "trades channel closed")
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trade")
	}
	return models.Trade{}
}

func TestStreamClientSubscribesAndDeliversTrades(t *testing.T) {
	subs := make(chan string, 4)
	url, _ := newWSServer(t, func(_ int, conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subs <- string(msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(strings.ReplaceAll(binanceTrade, "BTCUSDT", "ETHUSDT")))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(binanceTrade))
		drain(conn)
	})

	c := NewStreamClient(testConfig(url), &binanceAdapter{}, logger.NewNop())
	cancel, errCh := runClient(t, c)

	tr := recvTrade(t, c)
	assert.Equal(t, "BTCUSDT", tr.Symbol)
	assert.Equal(t, models.SideBuy, tr.Side)
	assert.InDelta(t, 201.0, tr.Notional(), 1e-9)
	assert.Contains(t, <-subs, "btcusdt@aggTrade")
	assert.Equal(t, StateConnected, c.State())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateDisconnected, c.State())
	_, open := <-c.Trades()
	assert.False(t, open)
}

func TestStreamClientResubscribesAfterDrop(t *testing.T) {
	url, conns := newWSServer(t, func(n int, conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if n == 1 {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(binanceTrade))
		drain(conn)
	})

	c := NewStreamClient(testConfig(url), &binanceAdapter{}, logger.NewNop())
	runClient(t, c)

	recvTrade(t, c)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
	h := c.Health()
	assert.GreaterOrEqual(t, h.TotalReconnects, 1)
	assert.Equal(t, 0, h.ReconnectAttempts, "attempts reset after a good connection")
}

func TestStreamClientGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxReconnectAttempts = 2
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	c := NewStreamClient(cfg, &binanceAdapter{}, logger.NewNop())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMaxReconnects))
	var ce *models.ConnectivityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, models.VenueBinance, ce.Venue)
	assert.Equal(t, StateDisconnected, c.State())

	var last HealthEvent
	for e := range c.Events() {
		last = e
	}
	assert.True(t, last.Terminal)
	assert.Equal(t, StateDisconnected, last.To)
}

func TestStreamClientWatchdogDegradesSilentFeed(t *testing.T) {
	release := make(chan struct{})
	url, conns := newWSServer(t, func(n int, conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if n == 1 {
			<-release
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(binanceTrade))
		drain(conn)
	})
	t.Cleanup(func() { close(release) })

	cfg := testConfig(url)
	cfg.PingInterval = 10 * time.Millisecond
	cfg.MessageTimeout = 30 * time.Millisecond
	c := NewStreamClient(cfg, &binanceAdapter{}, logger.NewNop())
	runClient(t, c)

	sawDegraded := false
	deadline := time.After(2 * time.Second)
	for !sawDegraded {
		select {
		case e := <-c.Events():
			sawDegraded = e.To == StateDegraded
		case <-deadline:
			t.Fatal("no DEGRADED transition")
		}
	}
	recvTrade(t, c)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestHealthStaleness(t *testing.T) {
	clk := clock.NewMock()
	cfg := testConfig("ws://unused")
	cfg.StaleAfter = 10 * time.Second
	c := NewStreamClient(cfg, &binanceAdapter{}, logger.NewNop(), WithClock(clk))

	h := c.Health()
	assert.Equal(t, StateDisconnected, h.State)
	assert.True(t, h.Stale)

	c.touch()
	assert.False(t, c.Health().Stale)

	clk.Add(11 * time.Second)
	assert.True(t, c.Health().Stale)
}

func TestConnStateStatus(t *testing.T) {
	assert.Equal(t, models.StatusConnected, StateConnected.Status())
	assert.Equal(t, models.StatusDegraded, StateReconnecting.Status())
	assert.Equal(t, models.StatusDisconnected, StateDisconnected.Status())
	b, _ := StateDegraded.MarshalText()
	assert.Equal(t, "DEGRADED", string(b))
}
