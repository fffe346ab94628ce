package models

import "time"

// Timeframe is a candle resolution.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// Duration returns the bar length of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	}
	return 0
}

type FractalType string

const (
	FractalHigh FractalType = "high"
	FractalLow  FractalType = "low"
)

// Fractal is a confirmed swing point.
type Fractal struct {
	Type      FractalType `json:"type"`
	Price     float64     `json:"price"`
	Index     int         `json:"index"`
	Timestamp time.Time   `json:"timestamp"`
}

type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	}
	return DirectionNone
}

type BreakDirection string

const (
	BreakBullish BreakDirection = "bullish"
	BreakBearish BreakDirection = "bearish"
)

// StructureBreak is a close beyond a confirmed fractal. Shift marks a break against the prevailing trend.
type StructureBreak struct {
	Direction BreakDirection `json:"direction"`
	Price     float64        `json:"price"`
	Index     int            `json:"index"`
	Timestamp time.Time      `json:"timestamp"`
	Fractal   Fractal        `json:"fractal"`
	Shift     bool           `json:"shift"`
}

type Trend string

const (
	TrendBull  Trend = "BULL"
	TrendBear  Trend = "BEAR"
	TrendRange Trend = "RANGE"
)

type Location string

const (
	LocationPremium     Location = "PREMIUM"
	LocationDiscount    Location = "DISCOUNT"
	LocationEquilibrium Location = "EQUILIBRIUM"
	LocationUnknown     Location = "UNKNOWN"
)

// DealingRange spans the latest swing high and swing low. High > Low always holds.
type DealingRange struct {
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Midpoint      float64 `json:"midpoint"`
	PremiumAbove  float64 `json:"premium_above"`
	DiscountBelow float64 `json:"discount_below"`
}

type POIKind string

const (
	POIFairValueGap POIKind = "fvg"
	POIOrderBlock   POIKind = "order_block"
)

// POI is a point-of-interest zone.
type POI struct {
	Kind      POIKind   `json:"kind"`
	Direction Direction `json:"direction"`
	Low       float64   `json:"low"`
	High      float64   `json:"high"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// Distance returns the relative distance from price to the zone, 0 when inside.
func (p POI) Distance(price float64) float64 {
	if price <= 0 {
		return 0
	}
	switch {
	case price < p.Low:
		return (p.Low - price) / price
	case price > p.High:
		return (price - p.High) / price
	}
	return 0
}

// TimeframeState is the structure analysis of one timeframe.
type TimeframeState struct {
	Timeframe    Timeframe        `json:"timeframe"`
	Trend        Trend            `json:"trend"`
	Range        *DealingRange    `json:"range,omitempty"`
	Price        float64          `json:"price"`
	Location     Location         `json:"location"`
	Fractals     []Fractal        `json:"fractals,omitempty"`
	Breaks       []StructureBreak `json:"breaks,omitempty"`
	LastShift    *StructureBreak  `json:"last_shift,omitempty"`
	POIs         []POI            `json:"pois,omitempty"`
	Bars         int              `json:"bars"`
	Insufficient bool             `json:"insufficient"`
	Reason       string           `json:"reason,omitempty"`
}
