package models

import "time"

// Candle is one OHLCV bar as returned by the candle provider.
type Candle struct {
	Timestamp time.Time `json:"timestamp" db:"bucket"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    float64   `json:"volume" db:"volume"`
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }
