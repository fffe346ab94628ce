package exchange

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterFor(t *testing.T) {
	a, err := AdapterFor(models.VenueOKX, models.ProductPerp)
	require.NoError(t, err)
	assert.Equal(t, models.VenueOKX, a.Venue())

	_, err = AdapterFor(models.VenueCoinbase, models.ProductPerp)
	assert.Error(t, err)

	_, err = AdapterFor("kraken", models.ProductSpot)
	assert.Error(t, err)
}

func TestSubscribeFrames(t *testing.T) {
	cases := []struct {
		venue   models.Venue
		product models.Product
		want    map[string]interface{}
	}{
		{models.VenueBybit, models.ProductPerp, map[string]interface{}{
			"op": "subscribe", "args": []interface{}{"publicTrade.BTCUSDT"},
		}},
		{models.VenueOKX, models.ProductSpot, map[string]interface{}{
			"op": "subscribe", "args": []interface{}{map[string]interface{}{"channel": "trades", "instId": "BTC-USDT"}},
		}},
		{models.VenueOKX, models.ProductPerp, map[string]interface{}{
			"op": "subscribe", "args": []interface{}{map[string]interface{}{"channel": "trades", "instId": "BTC-USDT-SWAP"}},
		}},
		{models.VenueCoinbase, models.ProductSpot, map[string]interface{}{
			"type": "subscribe", "channel": "market_trades", "product_ids": []interface{}{"BTC-USD"},
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.venue)+"/"+string(tc.product), func(t *testing.T) {
			frames, err := Adapters[tc.venue].Subscribe([]string{"BTCUSDT"}, tc.product)
			require.NoError(t, err)
			require.Len(t, frames, 1)
			var got map[string]interface{}
			require.NoError(t, json.Unmarshal(frames[0], &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBinanceSubscribeIncrementsID(t *testing.T) {
	a := &binanceAdapter{}
	first, _ := a.Subscribe([]string{"BTCUSDT", "ETHUSDT"}, models.ProductSpot)
	second, _ := a.Subscribe([]string{"BTCUSDT"}, models.ProductSpot)

	var f1, f2 struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}
	require.NoError(t, json.Unmarshal(first[0], &f1))
	require.NoError(t, json.Unmarshal(second[0], &f2))
	assert.Equal(t, "SUBSCRIBE", f1.Method)
	assert.Equal(t, []string{"btcusdt@aggTrade", "ethusdt@aggTrade"}, f1.Params)
	assert.Equal(t, f1.ID+1, f2.ID)
}

func TestParseTrades(t *testing.T) {
	ts := time.UnixMilli(1700000000123).UTC()
	cases := []struct {
		name    string
		venue   models.Venue
		product models.Product
		frame   string
		want    models.Trade
	}{
		{
			name:    "binance buyer maker is a sell",
			venue:   models.VenueBinance,
			product: models.ProductPerp,
			frame:   `{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","E":1700000000200,"s":"BTCUSDT","a":42,"p":"37000.50","q":"0.250","T":1700000000123,"m":true}}`,
			want:    models.Trade{Venue: models.VenueBinance, Product: models.ProductPerp, Symbol: "BTCUSDT", Price: 37000.5, Quantity: 0.25, Side: models.SideSell, Timestamp: ts, TradeID: "42"},
		},
		{
			name:    "bybit",
			venue:   models.VenueBybit,
			product: models.ProductSpot,
			frame:   `{"topic":"publicTrade.BTCUSDT","type":"snapshot","ts":1700000000200,"data":[{"T":1700000000123,"s":"BTCUSDT","S":"Buy","v":"0.5","p":"37001","i":"t-1"}]}`,
			want:    models.Trade{Venue: models.VenueBybit, Product: models.ProductSpot, Symbol: "BTCUSDT", Price: 37001, Quantity: 0.5, Side: models.SideBuy, Timestamp: ts, TradeID: "t-1"},
		},
		{
			name:    "okx swap contracts scaled",
			venue:   models.VenueOKX,
			product: models.ProductPerp,
			frame:   `{"arg":{"channel":"trades","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","tradeId":"9","px":"37002","sz":"20","side":"sell","ts":"1700000000123"}]}`,
			want:    models.Trade{Venue: models.VenueOKX, Product: models.ProductPerp, Symbol: "BTCUSDT", Price: 37002, Quantity: 0.2, Side: models.SideSell, Timestamp: ts, TradeID: "9"},
		},
		{
			name:    "coinbase usd maps to usdt",
			venue:   models.VenueCoinbase,
			product: models.ProductSpot,
			frame:   `{"channel":"market_trades","events":[{"type":"update","trades":[{"trade_id":"77","product_id":"BTC-USD","price":"36999.99","size":"0.01","side":"BUY","time":"2023-11-14T22:13:20.123Z"}]}]}`,
			want:    models.Trade{Venue: models.VenueCoinbase, Product: models.ProductSpot, Symbol: "BTCUSDT", Price: 36999.99, Quantity: 0.01, Side: models.SideBuy, Timestamp: ts, TradeID: "77"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades, err := Adapters[tc.venue].Parse([]byte(tc.frame), tc.product)
			require.NoError(t, err)
			require.Len(t, trades, 1)
			got := trades[0]
			assert.Equal(t, tc.want.Symbol, got.Symbol)
			assert.Equal(t, tc.want.Side, got.Side)
			assert.InDelta(t, tc.want.Price, got.Price, 1e-9)
			assert.InDelta(t, tc.want.Quantity, got.Quantity, 1e-9)
			assert.True(t, tc.want.Timestamp.Equal(got.Timestamp), "timestamp %v", got.Timestamp)
			assert.Equal(t, tc.want.TradeID, got.TradeID)
			assert.Equal(t, tc.want.Venue, got.Venue)
			assert.Equal(t, tc.want.Product, got.Product)
		})
	}
}

func TestParseIgnoresControlFrames(t *testing.T) {
	frames := map[models.Venue]string{
		models.VenueBinance:  `{"result":null,"id":1}`,
		models.VenueBybit:    `{"success":true,"ret_msg":"subscribe","op":"subscribe"}`,
		models.VenueOKX:      `{"event":"subscribe","arg":{"channel":"trades","instId":"BTC-USDT"}}`,
		models.VenueCoinbase: `{"channel":"subscriptions","events":[]}`,
	}
	for venue, frame := range frames {
		trades, err := Adapters[venue].Parse([]byte(frame), models.ProductSpot)
		assert.NoError(t, err, venue)
		assert.Empty(t, trades, venue)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Adapters[models.VenueBybit].Parse([]byte(`{"topic":"publicTrade.BTCUSDT","data":[{"S":"Buy","p":"abc","v":"1"}]}`), models.ProductSpot)
	var pe *models.ProtocolParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, models.VenueBybit, pe.Venue)

	_, err = Adapters[models.VenueOKX].Parse([]byte(`not json`), models.ProductSpot)
	assert.Error(t, err)
}

func TestPongDetection(t *testing.T) {
	assert.True(t, Adapters[models.VenueOKX].IsPong([]byte("pong")))
	assert.True(t, Adapters[models.VenueBybit].IsPong([]byte(`{"success":true,"ret_msg":"pong","op":"ping"}`)))
	assert.True(t, Adapters[models.VenueBybit].IsPong([]byte(`{"op":"pong","args":["1"]}`)))
	assert.False(t, Adapters[models.VenueBybit].IsPong([]byte(`{"topic":"publicTrade.BTCUSDT"}`)))
	assert.Nil(t, Adapters[models.VenueBinance].Ping())
}
