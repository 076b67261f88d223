package analytics

import (
	"math"
	"sort"

	"FlowMetrics/internal/domain/models"
)

const (
	DefaultProfileBins  = 20
	DefaultRangePct     = 0.05
	ValueAreaFraction   = 0.70
	minDistanceWeight   = 0.1
	distanceWeightSlope = 0.7
)

// ProfileOptions configures BuildProfile. Zero values fall back to the defaults.
type ProfileOptions struct {
	Bins      int
	RangeLow  float64
	RangeHigh float64
	// BuyerRatio splits each bin into buy and sell volume. Nil leaves both at zero.
	BuyerRatio *float64
	Detailed   bool
}

// BuildProfile allocates an aggregate volume over price bins around the current price,
// weighted by distance from spot. The result is an approximation and is flagged as such.
func BuildProfile(totalVolume, currentPrice float64, opts ProfileOptions) models.VolumeProfile {
	n := opts.Bins
	if n <= 0 {
		n = DefaultProfileBins
	}
	low, high := opts.RangeLow, opts.RangeHigh
	if high <= low {
		low = currentPrice * (1 - DefaultRangePct)
		high = currentPrice * (1 + DefaultRangePct)
	}
	if totalVolume < 0 || math.IsNaN(totalVolume) {
		totalVolume = 0
	}

	width := (high - low) / float64(n)
	priceRange := high - low
	bins := make([]models.VolumeProfileBin, n)
	weights := make([]float64, n)
	var sumW float64
	for i := range bins {
		price := low + width*(float64(i)+0.5)
		w := 1.0
		if priceRange > 0 {
			w = math.Max(minDistanceWeight, 1-distanceWeightSlope*math.Abs(price-currentPrice)/priceRange)
		}
		bins[i].PriceLevel = price
		weights[i] = w
		sumW += w
	}
	for i := range bins {
		if sumW > 0 {
			bins[i].Volume = totalVolume * weights[i] / sumW
		}
	}

	p := finishProfile(bins, totalVolume, opts.BuyerRatio, opts.Detailed)
	p.CurrentPrice = currentPrice
	p.RangeLow, p.RangeHigh, p.BinWidth = low, high, width
	p.Approximation = true
	return p
}

// ProfileFromCandles bins each candle's volume at its typical price over the candles' own range.
func ProfileFromCandles(candles []models.Candle, bins int, buyerRatio *float64, detailed bool) models.VolumeProfile {
	if bins <= 0 {
		bins = DefaultProfileBins
	}
	if len(candles) == 0 {
		return models.VolumeProfile{Bins: []models.VolumeProfileBin{}}
	}
	low, high := math.Inf(1), math.Inf(-1)
	var total float64
	for _, c := range candles {
		low = math.Min(low, c.Low)
		high = math.Max(high, c.High)
		total += c.Volume
	}
	if high <= low {
		high = low + 1e-9
	}
	width := (high - low) / float64(bins)
	out := make([]models.VolumeProfileBin, bins)
	for i := range out {
		out[i].PriceLevel = low + width*(float64(i)+0.5)
	}
	for _, c := range candles {
		idx := int((TypicalPrice(c) - low) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Volume += c.Volume
	}

	p := finishProfile(out, total, buyerRatio, detailed)
	p.CurrentPrice = candles[len(candles)-1].Close
	p.RangeLow, p.RangeHigh, p.BinWidth = low, high, width
	return p
}

func finishProfile(bins []models.VolumeProfileBin, total float64, buyerRatio *float64, detailed bool) models.VolumeProfile {
	poc := 0
	for i := range bins {
		if total > 0 {
			bins[i].VolumePercentage = bins[i].Volume / total * 100
		}
		if buyerRatio != nil {
			bins[i].BuyVolume = bins[i].Volume * *buyerRatio
			bins[i].SellVolume = bins[i].Volume - bins[i].BuyVolume
		}
		if bins[i].Volume > bins[poc].Volume {
			poc = i
		}
	}

	p := models.VolumeProfile{Bins: bins, TotalVolume: total}
	if len(bins) == 0 {
		return p
	}
	p.POC = bins[poc].PriceLevel

	order := make([]int, len(bins))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return bins[order[a]].Volume > bins[order[b]].Volume })

	target := total * ValueAreaFraction
	p.VAL, p.VAH = math.Inf(1), math.Inf(-1)
	for _, i := range order {
		p.ValueAreaVolume += bins[i].Volume
		p.VAL = math.Min(p.VAL, bins[i].PriceLevel)
		p.VAH = math.Max(p.VAH, bins[i].PriceLevel)
		if p.ValueAreaVolume >= target {
			break
		}
	}

	if detailed {
		addDetail(bins, order)
	}
	return p
}

func addDetail(bins []models.VolumeProfileBin, byVolume []int) {
	var cum float64
	for i := range bins {
		cum += bins[i].Volume
		bins[i].Detail = &models.BinDetail{CumulativeVolume: cum}
	}
	for rank, i := range byVolume {
		bins[i].Detail.VolumeRank = rank + 1
	}
	n := float64(len(bins))
	for i := range bins {
		var le int
		for j := range bins {
			if bins[j].Volume <= bins[i].Volume {
				le++
			}
		}
		bins[i].Detail.PercentileRank = float64(le) / n * 100
	}
}
