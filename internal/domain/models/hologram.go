package models

import "time"

// Status is the alignment verdict. It is derived from score and veto only.
type Status string

const (
	StatusAPlus    Status = "A+"
	StatusB        Status = "B"
	StatusConflict Status = "CONFLICT"
	StatusVeto     Status = "VETO"
)

// Tradeable reports whether the status admits a signal.
func (s Status) Tradeable() bool { return s == StatusAPlus || s == StatusB }

// VetoResult records a premium/discount veto.
type VetoResult struct {
	Vetoed    bool      `json:"vetoed"`
	Direction Direction `json:"direction,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// HologramState fuses the daily, 4h and 15m structure of one instrument.
type HologramState struct {
	Symbol    string         `json:"symbol"`
	Daily     TimeframeState `json:"daily"`
	H4        TimeframeState `json:"h4"`
	M15       TimeframeState `json:"m15"`
	Score     int            `json:"score"`
	Status    Status         `json:"status"`
	Veto      VetoResult     `json:"veto"`
	Direction Direction      `json:"direction"`
	RS        float64        `json:"rs"`
	// ATR and Volatility describe the 15m series: average true range in
	// price units and annualized realized volatility.
	ATR        float64   `json:"atr"`
	Volatility float64   `json:"volatility"`
	Timestamp  time.Time `json:"timestamp"`
}
