package exchange

import (
	"encoding/json"
	"strings"
	"sync/atomic"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/util"
)

type binanceAdapter struct {
	nextID atomic.Int64
}

func (*binanceAdapter) Venue() models.Venue { return models.VenueBinance }

func (*binanceAdapter) Supports(models.Product) bool { return true }

func (*binanceAdapter) URL(p models.Product) string {
	if p == models.ProductPerp {
		return "wss://fstream.binance.com/stream"
	}
	return "wss://stream.binance.com:9443/stream"
}

func (a *binanceAdapter) Subscribe(symbols []string, _ models.Product) ([][]byte, error) {
	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@aggTrade")
	}
	b, err := json.Marshal(map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     a.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

type binanceAggTrade struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	AggID     int64  `json:"a"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	TradeTime int64  `json:"T"`
	// Buyer is the maker, so the seller was the aggressor.
	BuyerMaker bool `json:"m"`
}

type binanceEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func (a *binanceAdapter) Parse(frame []byte, p models.Product) ([]models.Trade, error) {
	var env binanceEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, parseErr(models.VenueBinance, "decode: %v", err)
	}
	body := []byte(env.Data)
	if len(body) == 0 {
		body = frame
	}
	var t binanceAggTrade
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, parseErr(models.VenueBinance, "decode trade: %v", err)
	}
	if t.Event != "aggTrade" {
		return nil, nil
	}
	price, err := parseDecimal(t.Price)
	if err != nil {
		return nil, parseErr(models.VenueBinance, "price %q: %v", t.Price, err)
	}
	qty, err := parseDecimal(t.Qty)
	if err != nil {
		return nil, parseErr(models.VenueBinance, "qty %q: %v", t.Qty, err)
	}
	side := models.SideBuy
	if t.BuyerMaker {
		side = models.SideSell
	}
	return []models.Trade{{
		Venue:     models.VenueBinance,
		Product:   p,
		Symbol:    util.CanonicalSymbol(t.Symbol),
		Price:     price,
		Quantity:  qty,
		Side:      side,
		Timestamp: util.FromMillis(t.TradeTime),
		TradeID:   formatID(t.AggID),
	}}, nil
}

func (*binanceAdapter) Ping() []byte { return nil }

func (*binanceAdapter) IsPong([]byte) bool { return false }
