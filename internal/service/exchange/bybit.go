package exchange

import (
	"encoding/json"
	"strings"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/util"
)

type bybitAdapter struct{}

func (bybitAdapter) Venue() models.Venue { return models.VenueBybit }

func (bybitAdapter) Supports(models.Product) bool { return true }

func (bybitAdapter) URL(p models.Product) string {
	if p == models.ProductPerp {
		return "wss://stream.bybit.com/v5/public/linear"
	}
	return "wss://stream.bybit.com/v5/public/spot"
}

func (bybitAdapter) Subscribe(symbols []string, _ models.Product) ([][]byte, error) {
	args := make([]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, "publicTrade."+strings.ToUpper(s))
	}
	b, err := json.Marshal(map[string]interface{}{"op": "subscribe", "args": args})
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

type bybitFrame struct {
	Topic  string       `json:"topic"`
	Op     string       `json:"op"`
	RetMsg string       `json:"ret_msg"`
	Data   []bybitTrade `json:"data"`
}

type bybitTrade struct {
	Time   int64  `json:"T"`
	Symbol string `json:"s"`
	Side   string `json:"S"`
	Size   string `json:"v"`
	Price  string `json:"p"`
	ID     string `json:"i"`
}

func (bybitAdapter) Parse(frame []byte, p models.Product) ([]models.Trade, error) {
	var f bybitFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return nil, parseErr(models.VenueBybit, "decode: %v", err)
	}
	if !strings.HasPrefix(f.Topic, "publicTrade.") {
		return nil, nil
	}
	out := make([]models.Trade, 0, len(f.Data))
	for _, d := range f.Data {
		side, ok := models.ParseSide(d.Side)
		if !ok {
			return nil, parseErr(models.VenueBybit, "side %q", d.Side)
		}
		price, err := parseDecimal(d.Price)
		if err != nil {
			return nil, parseErr(models.VenueBybit, "price %q: %v", d.Price, err)
		}
		qty, err := parseDecimal(d.Size)
		if err != nil {
			return nil, parseErr(models.VenueBybit, "size %q: %v", d.Size, err)
		}
		out = append(out, models.Trade{
			Venue:     models.VenueBybit,
			Product:   p,
			Symbol:    util.CanonicalSymbol(d.Symbol),
			Price:     price,
			Quantity:  qty,
			Side:      side,
			Timestamp: util.FromMillis(d.Time),
			TradeID:   d.ID,
		})
	}
	return out, nil
}

func (bybitAdapter) Ping() []byte { return []byte(`{"op":"ping"}`) }

func (bybitAdapter) IsPong(frame []byte) bool {
	if !strings.Contains(string(frame), "pong") {
		return false
	}
	var f bybitFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return false
	}
	return f.Op == "pong" || f.RetMsg == "pong"
}
