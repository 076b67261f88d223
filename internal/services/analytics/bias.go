package analytics

import (
	"FlowMetrics/internal/domain/models"
	domsvc "FlowMetrics/internal/domain/service"
)

const (
	ratioEpsilon  = 1e-9
	buyThreshold  = 0.55
	sellThreshold = 0.45
)

// ClassifyBias thresholds the buyer ratio of buy/sell volume. A zero total yields a neutral 0.5 ratio.
func ClassifyBias(buy, sell float64) models.BiasResult {
	total := buy + sell
	ratio := 0.5
	if total > ratioEpsilon {
		ratio = buy / total
	}
	bias := models.BiasNeutral
	switch {
	case ratio > buyThreshold:
		bias = models.BiasBuy
	case ratio < sellThreshold:
		bias = models.BiasSell
	}
	strength := (ratio - 0.5) * 200
	if strength < 0 {
		strength = -strength
	}
	if strength > 100 {
		strength = 100
	}
	return models.BiasResult{
		Bias:        bias,
		BuyerRatio:  ratio,
		SellerRatio: 1 - ratio,
		Strength:    strength,
		NetFlow:     buy - sell,
		BuyVolume:   buy,
		SellVolume:  sell,
	}
}

// SummarizeFlow classifies the aggregate flow of buckets and counts outliers in per-bucket net flow.
func SummarizeFlow(buckets []models.FlowBucket, counter domsvc.OutlierCounter) models.BiasResult {
	var buy, sell float64
	net := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		buy += b.BuyVolume
		sell += b.SellVolume
		net = append(net, b.NetFlow())
	}
	res := ClassifyBias(buy, sell)
	if counter != nil {
		res.HighEvents, res.ExtremeEvents = counter.Count(net)
	}
	return res
}

// BuyerRatio returns the aggregate buyer ratio, or nil when there is no volume to derive it from.
func BuyerRatio(buckets []models.FlowBucket) *float64 {
	var buy, total float64
	for _, b := range buckets {
		buy += b.BuyVolume
		total += b.TotalVolume()
	}
	if total <= ratioEpsilon {
		return nil
	}
	r := buy / total
	return &r
}

// LargeFlows returns buckets whose quote notional is at least minNotional, in input order.
// Buckets with no volume never qualify.
func LargeFlows(buckets []models.FlowBucket, minNotional float64) []models.FlowEvent {
	out := make([]models.FlowEvent, 0)
	for _, b := range buckets {
		total := b.TotalVolume()
		if total <= 0 || total < minNotional {
			continue
		}
		out = append(out, models.FlowEvent{
			Timestamp:   b.Timestamp,
			Side:        ClassifyBias(b.BuyVolume, b.SellVolume).Bias,
			Price:       b.Price,
			BuyVolume:   b.BuyVolume,
			SellVolume:  b.SellVolume,
			TotalVolume: total,
			NetFlow:     b.NetFlow(),
			TradesCount: b.TradesCount,
		})
	}
	return out
}
