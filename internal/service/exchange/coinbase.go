package exchange

import (
	"encoding/json"
	"strings"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/util"
)

type coinbaseAdapter struct{}

func (coinbaseAdapter) Venue() models.Venue { return models.VenueCoinbase }

func (coinbaseAdapter) Supports(p models.Product) bool { return p == models.ProductSpot }

func (coinbaseAdapter) URL(models.Product) string { return "wss://advanced-trade-ws.coinbase.com" }

// coinbaseProduct maps "BTCUSDT" to "BTC-USD"; the USD book is the liquid one.
func coinbaseProduct(symbol string) string {
	base, quote, ok := util.SplitQuote(strings.ToUpper(symbol))
	if !ok {
		return symbol
	}
	if quote == "USDT" {
		quote = "USD"
	}
	return base + "-" + quote
}

// coinbaseSymbol is the inverse of coinbaseProduct.
func coinbaseSymbol(productID string) string {
	s := util.CanonicalSymbol(productID)
	if strings.HasSuffix(s, "USD") {
		return s + "T"
	}
	return s
}

func (coinbaseAdapter) Subscribe(symbols []string, _ models.Product) ([][]byte, error) {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, coinbaseProduct(s))
	}
	b, err := json.Marshal(map[string]interface{}{
		"type":        "subscribe",
		"channel":     "market_trades",
		"product_ids": ids,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

type coinbaseFrame struct {
	Channel string `json:"channel"`
	Events  []struct {
		Trades []coinbaseTrade `json:"trades"`
	} `json:"events"`
}

type coinbaseTrade struct {
	TradeID   string `json:"trade_id"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Time      string `json:"time"`
}

func (coinbaseAdapter) Parse(frame []byte, p models.Product) ([]models.Trade, error) {
	var f coinbaseFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return nil, parseErr(models.VenueCoinbase, "decode: %v", err)
	}
	if f.Channel != "market_trades" {
		return nil, nil
	}
	var out []models.Trade
	for _, ev := range f.Events {
		for _, d := range ev.Trades {
			side, ok := models.ParseSide(d.Side)
			if !ok {
				return nil, parseErr(models.VenueCoinbase, "side %q", d.Side)
			}
			price, err := parseDecimal(d.Price)
			if err != nil {
				return nil, parseErr(models.VenueCoinbase, "price %q: %v", d.Price, err)
			}
			qty, err := parseDecimal(d.Size)
			if err != nil {
				return nil, parseErr(models.VenueCoinbase, "size %q: %v", d.Size, err)
			}
			ts, err := time.Parse(time.RFC3339Nano, d.Time)
			if err != nil {
				return nil, parseErr(models.VenueCoinbase, "time %q", d.Time)
			}
			out = append(out, models.Trade{
				Venue:     models.VenueCoinbase,
				Product:   p,
				Symbol:    coinbaseSymbol(d.ProductID),
				Price:     price,
				Quantity:  qty,
				Side:      side,
				Timestamp: ts.UTC(),
				TradeID:   d.TradeID,
			})
		}
	}
	return out, nil
}

func (coinbaseAdapter) Ping() []byte { return nil }

func (coinbaseAdapter) IsPong([]byte) bool { return false }
