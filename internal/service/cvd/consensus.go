package cvd

import (
	"math"

	"FlowHunter/internal/domain/models"
)

// Consensus derives the cross-venue direction from connected flows.
func Consensus(flows []models.ExchangeFlow) models.Consensus {
	pos, neg, connected := 0, 0, 0
	var only float64
	for _, f := range flows {
		if !f.Connected() {
			continue
		}
		connected++
		only = f.CVD
		switch {
		case f.CVD > 0:
			pos++
		case f.CVD < 0:
			neg++
		}
	}
	switch {
	case connected == 0:
		return models.ConsensusNeutral
	case connected == 1:
		return sign(only)
	case pos > 0 && pos == neg:
		return models.ConsensusConflicted
	case pos >= 2 && pos > neg:
		return models.ConsensusBullish
	case neg >= 2 && neg > pos:
		return models.ConsensusBearish
	}
	return models.ConsensusNeutral
}

func sign(v float64) models.Consensus {
	switch {
	case v > 0:
		return models.ConsensusBullish
	case v < 0:
		return models.ConsensusBearish
	}
	return models.ConsensusNeutral
}

// Confidence blends directional agreement (50%), notional against
// reference (30%) and venue coverage (20%) into 0..100.
func Confidence(flows []models.ExchangeFlow, expected int, reference float64) float64 {
	pos, neg, connected := 0, 0, 0
	var notional float64
	for _, f := range flows {
		if !f.Connected() {
			continue
		}
		connected++
		notional += f.Volume
		switch {
		case f.CVD > 0:
			pos++
		case f.CVD < 0:
			neg++
		}
	}
	if connected == 0 || notional <= 0 {
		return 0
	}
	if expected < connected {
		expected = connected
	}
	if reference <= 0 {
		reference = 1_000_000
	}

	agreement := float64(max(pos, neg)) / float64(connected)
	volume := math.Min(notional/reference, 1)
	coverage := float64(connected) / float64(expected)

	c := 100 * (0.5*agreement + 0.3*volume + 0.2*coverage)
	if connected == 1 {
		c = math.Min(c, 100*coverage)
	}
	return c
}

// Aggregate returns Σ weight·cvd over connected flows.
func Aggregate(flows []models.ExchangeFlow) float64 {
	var s float64
	for _, f := range flows {
		if f.Connected() {
			s += f.Weight * f.CVD
		}
	}
	return s
}
