package cvd

import (
	"fmt"

	"FlowHunter/internal/domain/models"
)

// WeightMode selects how venue weights are derived.
type WeightMode string

const (
	WeightVolume  WeightMode = "volume"
	WeightFixed   WeightMode = "fixed"
	WeightDynamic WeightMode = "dynamic"
)

// ParseWeightMode maps a config string to a WeightMode. Empty means volume.
func ParseWeightMode(s string) (WeightMode, error) {
	switch WeightMode(s) {
	case "", WeightVolume:
		return WeightVolume, nil
	case WeightFixed, WeightDynamic:
		return WeightMode(s), nil
	}
	return "", fmt.Errorf("unknown weight mode %q", s)
}

// ComputeWeights returns a copy of flows with Weight set. Only connected
// venues receive weight and their weights sum to 1. table holds the fixed
// percentages (fixed mode) or the smoothed volume shares (dynamic mode) and
// is ignored in volume mode. When every connected raw weight is zero the
// connected venues share equally.
func ComputeWeights(mode WeightMode, flows []models.ExchangeFlow, table map[models.Venue]float64) []models.ExchangeFlow {
	out := make([]models.ExchangeFlow, len(flows))
	copy(out, flows)

	raw := make([]float64, len(out))
	var sum float64
	connected := 0
	for i, f := range out {
		out[i].Weight = 0
		if !f.Connected() {
			continue
		}
		connected++
		var w float64
		switch mode {
		case WeightFixed, WeightDynamic:
			w = table[f.Venue]
		default:
			w = f.Volume
		}
		if w < 0 {
			w = 0
		}
		raw[i] = w
		sum += w
	}
	if connected == 0 {
		return out
	}
	for i, f := range out {
		if !f.Connected() {
			continue
		}
		if sum > 0 {
			out[i].Weight = raw[i] / sum
		} else {
			out[i].Weight = 1 / float64(connected)
		}
	}
	return out
}

// updateShares folds the latest connected-venue volume shares into the
// exponentially smoothed table used by dynamic mode.
func updateShares(prev map[models.Venue]float64, flows []models.ExchangeFlow, alpha float64) map[models.Venue]float64 {
	next := make(map[models.Venue]float64, len(flows))
	var total float64
	for _, f := range flows {
		if f.Connected() {
			total += f.Volume
		}
	}
	for _, f := range flows {
		var share float64
		if f.Connected() && total > 0 {
			share = f.Volume / total
		}
		old, seen := prev[f.Venue]
		if !seen {
			next[f.Venue] = share
			continue
		}
		next[f.Venue] = alpha*share + (1-alpha)*old
	}
	return next
}
