package models

import (
	"strings"
	"time"
)

// Venue identifies an exchange feed.
type Venue string

const (
	VenueBinance  Venue = "binance"
	VenueBybit    Venue = "bybit"
	VenueOKX      Venue = "okx"
	VenueCoinbase Venue = "coinbase"
)

// Product distinguishes spot books from perpetual swaps on the same venue.
type Product string

const (
	ProductSpot Product = "spot"
	ProductPerp Product = "perp"
)

// Side is the aggressor side of a trade.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide maps venue side strings ("Buy", "sell", "BUY") to a Side.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(s) {
	case "buy", "b", "bid":
		return SideBuy, true
	case "sell", "s", "ask":
		return SideSell, true
	}
	return 0, false
}

// Trade is a canonical trade print normalized from a venue stream.
type Trade struct {
	Venue     Venue     `json:"venue"`
	Product   Product   `json:"product"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Side      Side      `json:"side"`
	Timestamp time.Time `json:"timestamp"`
	TradeID   string    `json:"trade_id"`
}

// Notional returns price * quantity.
func (t Trade) Notional() float64 { return t.Price * t.Quantity }

// Delta is the signed CVD contribution: +notional for buyer aggression, -notional for seller.
func (t Trade) Delta() float64 {
	if t.Side == SideSell {
		return -t.Notional()
	}
	return t.Notional()
}
