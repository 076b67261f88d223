package features

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"

	"FlowMetrics/internal/domain/models"
	"FlowMetrics/internal/domain/repository"
)

const (
	HVWindow   = 20
	RVWindow   = 10
	ATRPeriod  = 14
	MinCandles = 30
)

// ErrInsufficientData is returned when the series is too short for every rolling window.
var ErrInsufficientData = errors.New("insufficient candles for volatility inputs")

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// BarsPerYear returns the approximate number of bars per year for an interval.
func BarsPerYear(iv repository.Interval) float64 {
	d := iv.Duration()
	if d <= 0 {
		return 365 * 24 * 60
	}
	return float64(365*24*60*60) / d.Seconds()
}

// HistoricalVolatility returns the rolling annualized stddev of log returns in percent.
// The first window-1 entries carry no value and are omitted.
func HistoricalVolatility(returns []float64, window int, barsPerYear float64) []float64 {
	if window <= 1 || len(returns) < window {
		return nil
	}
	sd := talib.StdDev(returns, window, 1.0)
	scale := math.Sqrt(barsPerYear) * 100
	out := make([]float64, 0, len(sd)-window+1)
	for _, v := range sd[window-1:] {
		out = append(out, v*scale)
	}
	return out
}

// RealizedVolatility returns the rolling annualized root mean square of log returns in percent.
func RealizedVolatility(returns []float64, window int, barsPerYear float64) []float64 {
	if window <= 0 || len(returns) < window {
		return nil
	}
	sq := make([]float64, len(returns))
	for i, r := range returns {
		sq[i] = r * r
	}
	ms := talib.Sma(sq, window)
	out := make([]float64, 0, len(ms)-window+1)
	for _, v := range ms[window-1:] {
		out = append(out, math.Sqrt(math.Max(v, 0)*barsPerYear)*100)
	}
	return out
}

// ATRPercent returns the rolling average true range as a percentage of close.
func ATRPercent(candles []models.Candle, period int) []float64 {
	if period <= 0 || len(candles) <= period {
		return nil
	}
	high := make([]float64, len(candles))
	low := make([]float64, len(candles))
	cls := make([]float64, len(candles))
	for i, c := range candles {
		high[i], low[i], cls[i] = c.High, c.Low, c.Close
	}
	atr := talib.Atr(high, low, cls, period)
	out := make([]float64, 0, len(candles)-period)
	for i := period; i < len(atr); i++ {
		if cls[i] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, atr[i]/cls[i]*100)
	}
	return out
}

// PercentileRank returns the mid-rank of the last value within history, in percent.
// Ties count half, so a constant history ranks 50.
func PercentileRank(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	last := history[len(history)-1]
	var less, equal int
	for _, v := range history {
		switch {
		case v < last:
			less++
		case v == last:
			equal++
		}
	}
	return (float64(less) + 0.5*float64(equal)) / float64(len(history)) * 100
}

// VolatilityInputs derives HV, RV and ATR percentages with their percentile ranks from candles.
func VolatilityInputs(candles []models.Candle, iv repository.Interval) (models.VolatilityInputs, error) {
	if len(candles) < MinCandles {
		return models.VolatilityInputs{}, ErrInsufficientData
	}
	bpy := BarsPerYear(iv)
	returns := ComputeLogReturns(candles)
	hv := HistoricalVolatility(returns, HVWindow, bpy)
	rv := RealizedVolatility(returns, RVWindow, bpy)
	atr := ATRPercent(candles, ATRPeriod)
	if len(hv) == 0 || len(rv) == 0 || len(atr) == 0 {
		return models.VolatilityInputs{}, ErrInsufficientData
	}
	return models.VolatilityInputs{
		HVPct:         hv[len(hv)-1],
		RVPct:         rv[len(rv)-1],
		ATRPct:        atr[len(atr)-1],
		HVPercentile:  PercentileRank(hv),
		RVPercentile:  PercentileRank(rv),
		ATRPercentile: PercentileRank(atr),
	}, nil
}
