package usecase

import (
	"context"
)

// priceStrategy yields a real price or reports that it has none.
type priceStrategy struct {
	name string
	fn   func(ctx context.Context) (float64, bool)
}

// resolvePrice returns the first positive price of the ordered strategies. It never invents one.
func resolvePrice(ctx context.Context, strategies ...priceStrategy) (float64, string, bool) {
	for _, s := range strategies {
		if s.fn == nil {
			continue
		}
		if p, ok := s.fn(ctx); ok && p > 0 {
			return p, s.name, true
		}
	}
	return 0, "", false
}

func fixedPrice(name string, price float64, ok bool) priceStrategy {
	return priceStrategy{name: name, fn: func(context.Context) (float64, bool) { return price, ok }}
}

func (uc *MetricsUseCase) cachedPrice(symbol string) priceStrategy {
	return priceStrategy{name: "cache", fn: func(ctx context.Context) (float64, bool) {
		var p float64
		if !uc.compute.Recall(ctx, priceKey(symbol), &p) {
			return 0, false
		}
		return p, true
	}}
}

func priceKey(symbol string) string { return "price_" + symbol }
