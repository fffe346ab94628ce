package models

import "time"

// Zone is a price interval.
type Zone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the zone midpoint.
func (z Zone) Mid() float64 { return (z.Low + z.High) / 2 }

// Signal is the only record handed to the execution gateway.
type Signal struct {
	SignalID    string    `json:"signalId"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	EntryZone   Zone      `json:"entryZone"`
	StopLoss    float64   `json:"stopLoss"`
	TakeProfits []float64 `json:"takeProfits"`
	Confidence  float64   `json:"confidence"`
	Leverage    int       `json:"leverage"`
	Timestamp   time.Time `json:"timestamp"`
}

// GateResult is the outcome of one validation gate.
type GateResult struct {
	Gate   string `json:"gate"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Decision is the emit/suppress outcome of one evaluation.
type Decision struct {
	Symbol     string       `json:"symbol"`
	Emit       bool         `json:"emit"`
	Signal     *Signal      `json:"signal,omitempty"`
	Gates      []GateResult `json:"gates"`
	Suppressed string       `json:"suppressed,omitempty"`
}
