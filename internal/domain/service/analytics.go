package service

import (
	"FlowMetrics/internal/domain/models"
	"FlowMetrics/internal/domain/repository"
)

// RegimeClassifier scores volatility inputs into a regime and forward transition estimates.
type RegimeClassifier interface {
	Classify(in models.VolatilityInputs) models.RegimeClassification
	Transitions(c models.RegimeClassification, cadence repository.Interval) []models.TransitionEstimate
}

// OutlierCounter counts z-score events over a value series.
type OutlierCounter interface {
	Count(values []float64) (high, extreme int)
}
