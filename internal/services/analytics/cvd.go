package analytics

import (
	"github.com/shopspring/decimal"

	"FlowMetrics/internal/domain/models"
)

// ComputeCVD accumulates buy - sell volume over buckets in the order given.
// The running sum is kept in decimal so the same input always yields the same series.
func ComputeCVD(buckets []models.FlowBucket) []models.CVDPoint {
	out := make([]models.CVDPoint, 0, len(buckets))
	cumulative := decimal.Zero
	for _, b := range buckets {
		buy := decimal.NewFromFloat(b.BuyVolume)
		sell := decimal.NewFromFloat(b.SellVolume)
		net := buy.Sub(sell)
		cumulative = cumulative.Add(net)
		out = append(out, models.CVDPoint{
			Timestamp:  b.Timestamp,
			NetVolume:  net.InexactFloat64(),
			CVD:        cumulative.InexactFloat64(),
			BuyVolume:  b.BuyVolume,
			SellVolume: b.SellVolume,
		})
	}
	return out
}
