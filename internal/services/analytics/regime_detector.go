package analytics

import (
	"math"

	"FlowMetrics/internal/domain/models"
	"FlowMetrics/internal/domain/repository"
	domsvc "FlowMetrics/internal/domain/service"
)

const (
	hvWeight  = 0.5
	rvWeight  = 0.3
	atrWeight = 0.2

	calmBelow   = 30.0
	normalBelow = 60.0
)

// horizonWeights holds base weights per horizon (near, mid, far) in Calm, Normal, Volatile order.
type horizonWeights [3][3]float64

var baseTransitionWeights = map[models.Regime]horizonWeights{
	models.RegimeCalm: {
		{0.70, 0.25, 0.05},
		{0.50, 0.40, 0.10},
		{0.35, 0.50, 0.15},
	},
	models.RegimeNormal: {
		{0.15, 0.70, 0.15},
		{0.20, 0.60, 0.20},
		{0.25, 0.50, 0.25},
	},
	models.RegimeVolatile: {
		{0.05, 0.25, 0.70},
		{0.10, 0.40, 0.50},
		{0.15, 0.50, 0.35},
	},
}

var recommendations = map[models.Regime][]string{
	models.RegimeCalm: {
		"Range strategies favoured; fade moves toward band edges",
		"Tighter stops are viable while realised range stays compressed",
		"Watch for volatility expansion after prolonged compression",
	},
	models.RegimeNormal: {
		"Standard position sizing",
		"Trend-following and mean-reversion both viable; confirm with flow",
	},
	models.RegimeVolatile: {
		"Reduce position size and widen stops",
		"Prefer confirmation over anticipation; expect slippage",
		"Monitor large flow events for capitulation or squeeze",
	},
}

// RegimeDetector computes the composite volatility score, regime and transition estimates.
// It holds no state: every call recomputes from its inputs.
type RegimeDetector struct{}

func NewRegimeDetector() *RegimeDetector { return &RegimeDetector{} }

func (d *RegimeDetector) Classify(in models.VolatilityInputs) models.RegimeClassification {
	score := clamp(round1(in.HVPercentile*hvWeight+in.RVPercentile*rvWeight+in.ATRPercentile*atrWeight), 0, 100)
	_, std := meanStd([]float64{in.HVPercentile, in.RVPercentile, in.ATRPercentile})
	regime := RegimeForScore(score)
	return models.RegimeClassification{
		Score:           score,
		Regime:          regime,
		Confidence:      clamp(round1(100-2*std), 0, 100),
		Recommendations: append([]string(nil), recommendations[regime]...),
	}
}

// RegimeForScore maps a composite score to a regime.
func RegimeForScore(score float64) models.Regime {
	switch {
	case score < calmBelow:
		return models.RegimeCalm
	case score < normalBelow:
		return models.RegimeNormal
	default:
		return models.RegimeVolatile
	}
}

// Transitions returns three probabilities per horizon. Low confidence shifts weight away from
// the current regime. Each horizon sums to exactly 100 after rounding.
func (d *RegimeDetector) Transitions(c models.RegimeClassification, cadence repository.Interval) []models.TransitionEstimate {
	base, ok := baseTransitionWeights[c.Regime]
	if !ok {
		base = baseTransitionWeights[models.RegimeNormal]
	}
	factor := (100 - clamp(c.Confidence, 0, 100)) / 100
	labels := HorizonLabels(cadence)

	out := make([]models.TransitionEstimate, 0, len(labels)*len(models.Regimes))
	for h, label := range labels {
		w := make([]float64, len(models.Regimes))
		for i, r := range models.Regimes {
			if r == c.Regime {
				w[i] = base[h][i] * (1 - factor/2)
			} else {
				w[i] = base[h][i] * (1 + factor)
			}
		}
		for i, p := range normalizeTo100(w) {
			out = append(out, models.TransitionEstimate{
				TargetRegime:   models.Regimes[i],
				Probability:    p,
				TimeframeLabel: label,
			})
		}
	}
	return out
}

// HorizonLabels names the near, mid and far horizons for a sampling cadence.
func HorizonLabels(cadence repository.Interval) [3]string {
	switch cadence {
	case repository.Interval1m, repository.Interval5m, repository.Interval15m:
		return [3]string{"1h", "4h", "24h"}
	case repository.Interval1d:
		return [3]string{"1w", "1M", "3M"}
	default:
		return [3]string{"24h", "3d", "1w"}
	}
}

// normalizeTo100 scales weights to percentages rounded to one decimal.
// The rounding residual goes to the largest entry.
func normalizeTo100(w []float64) []float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	out := make([]float64, len(w))
	if sum <= 0 {
		for i := range out {
			out[i] = round1(100 / float64(len(w)))
		}
	} else {
		for i, v := range w {
			out[i] = round1(v / sum * 100)
		}
	}
	var total float64
	largest := 0
	for i, v := range out {
		total += v
		if v > out[largest] {
			largest = i
		}
	}
	out[largest] = round1(out[largest] + 100 - total)
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

var _ domsvc.RegimeClassifier = (*RegimeDetector)(nil)
