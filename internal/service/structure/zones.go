package structure

import "FlowHunter/internal/domain/models"

// ComputeDealingRange spans the most recent swing high and swing low. ok is
// false when either swing type is missing or the swings are inverted.
func ComputeDealingRange(fractals []models.Fractal, band float64) (*models.DealingRange, bool) {
	var high, low *models.Fractal
	for i := len(fractals) - 1; i >= 0 && (high == nil || low == nil); i-- {
		f := fractals[i]
		switch {
		case f.Type == models.FractalHigh && high == nil:
			high = &f
		case f.Type == models.FractalLow && low == nil:
			low = &f
		}
	}
	if high == nil || low == nil || high.Price <= low.Price {
		return nil, false
	}
	width := high.Price - low.Price
	mid := low.Price + width/2
	return &models.DealingRange{
		High:          high.Price,
		Low:           low.Price,
		Midpoint:      mid,
		PremiumAbove:  mid + band*width,
		DiscountBelow: mid - band*width,
	}, true
}

// Locate places price inside the range.
func Locate(r *models.DealingRange, price float64) models.Location {
	switch {
	case r == nil:
		return models.LocationUnknown
	case price > r.PremiumAbove:
		return models.LocationPremium
	case price < r.DiscountBelow:
		return models.LocationDiscount
	}
	return models.LocationEquilibrium
}

const maxPOIs = 10

// DetectPOIs returns unmitigated fair value gaps and the order blocks behind
// each break, newest last, capped to the ten most recent.
func DetectPOIs(candles []models.Candle, breaks []models.StructureBreak) []models.POI {
	var out []models.POI
	for i := 2; i < len(candles); i++ {
		a, c := candles[i-2], candles[i]
		switch {
		case a.High < c.Low:
			p := models.POI{Kind: models.POIFairValueGap, Direction: models.DirectionLong, Low: a.High, High: c.Low, Index: i, Timestamp: c.Timestamp}
			if !mitigated(p, candles[i+1:]) {
				out = append(out, p)
			}
		case a.Low > c.High:
			p := models.POI{Kind: models.POIFairValueGap, Direction: models.DirectionShort, Low: c.High, High: a.Low, Index: i, Timestamp: c.Timestamp}
			if !mitigated(p, candles[i+1:]) {
				out = append(out, p)
			}
		}
	}

	for _, b := range breaks {
		if ob, ok := orderBlock(candles, b); ok && !mitigated(ob, candles[b.Index+1:]) {
			out = append(out, ob)
		}
	}

	sortPOIs(out)
	if len(out) > maxPOIs {
		out = out[len(out)-maxPOIs:]
	}
	return out
}

// orderBlock is the last opposite-colored candle between the broken
// fractal and the breaking candle.
func orderBlock(candles []models.Candle, b models.StructureBreak) (models.POI, bool) {
	for i := b.Index - 1; i >= b.Fractal.Index && i >= 0; i-- {
		c := candles[i]
		if b.Direction == models.BreakBullish && c.Close < c.Open {
			return models.POI{Kind: models.POIOrderBlock, Direction: models.DirectionLong, Low: c.Low, High: c.High, Index: i, Timestamp: c.Timestamp}, true
		}
		if b.Direction == models.BreakBearish && c.Close > c.Open {
			return models.POI{Kind: models.POIOrderBlock, Direction: models.DirectionShort, Low: c.Low, High: c.High, Index: i, Timestamp: c.Timestamp}, true
		}
	}
	return models.POI{}, false
}

// mitigated reports whether price later traded through the far side of the zone.
func mitigated(p models.POI, later []models.Candle) bool {
	for _, c := range later {
		if p.Direction == models.DirectionLong && c.Low < p.Low {
			return true
		}
		if p.Direction == models.DirectionShort && c.High > p.High {
			return true
		}
	}
	return false
}

func sortPOIs(p []models.POI) {
	// insertion sort keeps equal indexes in detection order
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j].Index < p[j-1].Index; j-- {
			p[j], p[j-1] = p[j-1], p[j]
		}
	}
}

// NearestPOI returns the zone of the given direction closest to price.
func NearestPOI(pois []models.POI, dir models.Direction, price float64) (models.POI, bool) {
	var best models.POI
	found := false
	for _, p := range pois {
		if p.Direction != dir {
			continue
		}
		if !found || p.Distance(price) < best.Distance(price) {
			best, found = p, true
		}
	}
	return best, found
}
