package models

import "time"

// ConnStatus is the connectivity of a venue as seen by the aggregator.
type ConnStatus string

const (
	StatusConnected    ConnStatus = "connected"
	StatusDegraded     ConnStatus = "degraded"
	StatusDisconnected ConnStatus = "disconnected"
)

// Consensus is the cross-venue direction of aggressive flow.
type Consensus string

const (
	ConsensusBullish    Consensus = "bullish"
	ConsensusBearish    Consensus = "bearish"
	ConsensusNeutral    Consensus = "neutral"
	ConsensusConflicted Consensus = "conflicted"
)

// ExchangeFlow is the per-venue flow summary for one symbol and window.
type ExchangeFlow struct {
	Venue      Venue      `json:"venue"`
	CVD        float64    `json:"cvd"`
	Volume     float64    `json:"volume"`
	TradeCount int        `json:"trade_count"`
	Weight     float64    `json:"weight"`
	Status     ConnStatus `json:"status"`
	LastUpdate time.Time  `json:"last_update"`
}

// Connected reports whether the flow participates in weighting.
func (f ExchangeFlow) Connected() bool { return f.Status == StatusConnected }

// CVDSnapshot is an immutable cross-venue view. Readers never see it mutated.
type CVDSnapshot struct {
	Symbol        string                `json:"symbol"`
	Window        time.Duration         `json:"window"`
	AggregatedCVD float64               `json:"aggregated_cvd"`
	TotalVolume   float64               `json:"total_volume"`
	Flows         []ExchangeFlow        `json:"flows"`
	Consensus     Consensus             `json:"consensus"`
	Confidence    float64               `json:"confidence"`
	Manipulation  *ManipulationAnalysis `json:"manipulation,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// ConnectedFlows returns the flows of connected venues only.
func (s *CVDSnapshot) ConnectedFlows() []ExchangeFlow {
	out := make([]ExchangeFlow, 0, len(s.Flows))
	for _, f := range s.Flows {
		if f.Connected() {
			out = append(out, f)
		}
	}
	return out
}
