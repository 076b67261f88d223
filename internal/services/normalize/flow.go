package normalize

import (
	"math"
	"sort"

	"FlowMetrics/internal/domain/models"
)

// ResolveFlow turns partial provider records into flow buckets.
//   - records without a timestamp, buy or sell volume are dropped
//   - a missing or non-positive price takes the previous bucket's price, then fallbackPrice
//   - a missing trade count is zero
//
// The result is sorted ascending by timestamp.
func ResolveFlow(raw []models.RawFlowBucket, fallbackPrice float64) []models.FlowBucket {
	out := make([]models.FlowBucket, 0, len(raw))
	for _, r := range raw {
		if r.Timestamp == nil || r.BuyVolume == nil || r.SellVolume == nil {
			continue
		}
		buy, sell := *r.BuyVolume, *r.SellVolume
		if !finite(buy) || !finite(sell) || buy < 0 || sell < 0 {
			continue
		}
		b := models.FlowBucket{Timestamp: *r.Timestamp, BuyVolume: buy, SellVolume: sell}
		if r.TradesCount != nil {
			b.TradesCount = *r.TradesCount
		}
		if r.Price != nil && finite(*r.Price) {
			b.Price = *r.Price
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return BackfillPrice(out, fallbackPrice)
}

// BackfillPrice replaces non-positive prices with the last seen price, or fallback before the first one.
func BackfillPrice(buckets []models.FlowBucket, fallback float64) []models.FlowBucket {
	last := fallback
	for i := range buckets {
		if buckets[i].Price > 0 {
			last = buckets[i].Price
			continue
		}
		buckets[i].Price = last
	}
	return buckets
}

// LastPrice returns the most recent positive bucket price.
func LastPrice(buckets []models.FlowBucket) (float64, bool) {
	for i := len(buckets) - 1; i >= 0; i-- {
		if buckets[i].Price > 0 {
			return buckets[i].Price, true
		}
	}
	return 0, false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
