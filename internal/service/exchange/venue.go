package exchange

import (
	"fmt"
	"strconv"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/util"

	"github.com/shopspring/decimal"
)

// Adapter translates one venue's wire protocol. Parse returns (nil, nil)
// for frames that carry no trades, such as subscription acks.
type Adapter interface {
	Venue() models.Venue
	Supports(p models.Product) bool
	URL(p models.Product) string
	Subscribe(symbols []string, p models.Product) ([][]byte, error)
	Parse(frame []byte, p models.Product) ([]models.Trade, error)
	// Ping returns an application ping frame, or nil to use a
	// WebSocket control ping.
	Ping() []byte
	IsPong(frame []byte) bool
}

// Adapters is the venue dispatch table.
var Adapters = map[models.Venue]Adapter{
	models.VenueBinance:  &binanceAdapter{},
	models.VenueBybit:    bybitAdapter{},
	models.VenueOKX:      okxAdapter{},
	models.VenueCoinbase: coinbaseAdapter{},
}

// AdapterFor looks up the adapter for v and checks it serves p.
func AdapterFor(v models.Venue, p models.Product) (Adapter, error) {
	a, ok := Adapters[v]
	if !ok {
		return nil, fmt.Errorf("unknown venue %q", v)
	}
	if !a.Supports(p) {
		return nil, fmt.Errorf("venue %s does not serve %s", v, p)
	}
	return a, nil
}

func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// dashed turns "BTCUSDT" into "BTC-USDT".
func dashed(symbol string) string {
	base, quote, ok := util.SplitQuote(symbol)
	if !ok {
		return symbol
	}
	return base + "-" + quote
}

func parseErr(v models.Venue, format string, a ...interface{}) error {
	return &models.ProtocolParseError{Venue: v, Err: fmt.Errorf(format, a...)}
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
