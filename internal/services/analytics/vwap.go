package analytics

import (
	"math"

	"FlowMetrics/internal/domain/models"
)

// BandConfig controls how wide the trading bands around a running average are.
// Width = max(|close - mean| * DeviationFactor, mean * FloorFactor).
type BandConfig struct {
	DeviationFactor float64
	FloorFactor     float64
}

var (
	VWAPBands = BandConfig{DeviationFactor: 0.02, FloorFactor: 0.001}
	TWAPBands = BandConfig{DeviationFactor: 0.015, FloorFactor: 0.005}
)

const (
	strongStrengthFactor = 2.0
	meanStrengthFactor   = 3.0
)

// TypicalPrice weights close twice: (high + low + close + close) / 4.
func TypicalPrice(c models.Candle) float64 {
	return (c.High + c.Low + c.Close + c.Close) / 4
}

// ComputeVWAP returns the cumulative volume-weighted average price series with bands and signals.
// A point with zero cumulative volume falls back to its typical price.
func ComputeVWAP(candles []models.Candle) []models.VWAPPoint {
	out := make([]models.VWAPPoint, 0, len(candles))
	var cumPV, cumVol float64
	for _, c := range candles {
		tp := TypicalPrice(c)
		cumPV += tp * c.Volume
		cumVol += c.Volume

		vwap := tp
		if cumVol > 0 {
			vwap = cumPV / cumVol
		}
		out = append(out, bandPoint(c, vwap, cumVol, VWAPBands))
	}
	return out
}

// ComputeTWAP returns the running mean of close with TWAP bands and signals.
func ComputeTWAP(candles []models.Candle) []models.VWAPPoint {
	out := make([]models.VWAPPoint, 0, len(candles))
	var sumClose, cumVol float64
	for i, c := range candles {
		sumClose += c.Close
		cumVol += c.Volume
		twap := sumClose / float64(i+1)
		out = append(out, bandPoint(c, twap, cumVol, TWAPBands))
	}
	return out
}

func bandPoint(c models.Candle, mean, cumVol float64, cfg BandConfig) models.VWAPPoint {
	width := math.Max(math.Abs(c.Close-mean)*cfg.DeviationFactor, mean*cfg.FloorFactor)
	if width < 0 {
		width = 0
	}
	upper := mean + width
	lower := mean - width
	signal, strength, dev := Classify(c.Close, mean, upper, lower)
	return models.VWAPPoint{
		Timestamp:        c.Timestamp,
		Price:            c.Close,
		VWAP:             mean,
		UpperBand:        upper,
		LowerBand:        lower,
		Volume:           c.Volume,
		CumulativeVolume: cumVol,
		Signal:           signal,
		Strength:         strength,
		DeviationPct:     dev,
	}
}

// Classify maps a price against a mean and its bands. The checks run in precedence order:
// above upper, above mean, below lower, below mean, otherwise neutral.
func Classify(price, mean, upper, lower float64) (models.Signal, float64, float64) {
	dev := 0.0
	if mean != 0 {
		dev = (price - mean) / mean * 100
	}
	strength := func(k float64) float64 { return math.Min(100, math.Abs(dev)*k) }

	switch {
	case price > upper:
		return models.SignalStrongBullish, strength(strongStrengthFactor), dev
	case price > mean:
		return models.SignalBullish, strength(meanStrengthFactor), dev
	case price < lower:
		return models.SignalStrongBearish, strength(strongStrengthFactor), dev
	case price < mean:
		return models.SignalBearish, strength(meanStrengthFactor), dev
	default:
		return models.SignalNeutral, 0, dev
	}
}
