package exchange

import (
	"encoding/json"
	"strconv"
	"strings"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/util"
)

// Swap sizes are quoted in contracts. Unlisted instruments default to 1.
var okxContractValue = map[string]float64{
	"BTC-USDT-SWAP": 0.01,
	"ETH-USDT-SWAP": 0.1,
	"SOL-USDT-SWAP": 1,
}

type okxAdapter struct{}

func (okxAdapter) Venue() models.Venue { return models.VenueOKX }

func (okxAdapter) Supports(models.Product) bool { return true }

func (okxAdapter) URL(models.Product) string { return "wss://ws.okx.com:8443/ws/v5/public" }

func okxInstID(symbol string, p models.Product) string {
	id := dashed(strings.ToUpper(symbol))
	if p == models.ProductPerp {
		id += "-SWAP"
	}
	return id
}

func (okxAdapter) Subscribe(symbols []string, p models.Product) ([][]byte, error) {
	type arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}
	args := make([]arg, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, arg{Channel: "trades", InstID: okxInstID(s, p)})
	}
	b, err := json.Marshal(map[string]interface{}{"op": "subscribe", "args": args})
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

type okxFrame struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []okxTrade `json:"data"`
}

type okxTrade struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

func (okxAdapter) Parse(frame []byte, p models.Product) ([]models.Trade, error) {
	var f okxFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return nil, parseErr(models.VenueOKX, "decode: %v", err)
	}
	if f.Event != "" || f.Arg.Channel != "trades" {
		return nil, nil
	}
	out := make([]models.Trade, 0, len(f.Data))
	for _, d := range f.Data {
		side, ok := models.ParseSide(d.Side)
		if !ok {
			return nil, parseErr(models.VenueOKX, "side %q", d.Side)
		}
		price, err := parseDecimal(d.Px)
		if err != nil {
			return nil, parseErr(models.VenueOKX, "px %q: %v", d.Px, err)
		}
		qty, err := parseDecimal(d.Sz)
		if err != nil {
			return nil, parseErr(models.VenueOKX, "sz %q: %v", d.Sz, err)
		}
		if ct, ok := okxContractValue[d.InstID]; ok {
			qty *= ct
		}
		ms, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			return nil, parseErr(models.VenueOKX, "ts %q: %v", d.Ts, err)
		}
		out = append(out, models.Trade{
			Venue:     models.VenueOKX,
			Product:   p,
			Symbol:    util.CanonicalSymbol(strings.TrimSuffix(d.InstID, "-SWAP")),
			Price:     price,
			Quantity:  qty,
			Side:      side,
			Timestamp: util.FromMillis(ms),
			TradeID:   d.TradeID,
		})
	}
	return out, nil
}

func (okxAdapter) Ping() []byte { return []byte("ping") }

func (okxAdapter) IsPong(frame []byte) bool { return string(frame) == "pong" }
