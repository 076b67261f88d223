package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Endpoint tracks latency and error counts of the analytics operations.
type Endpoint struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
	empty   *prometheus.CounterVec
}

// NewEndpoint creates and registers the analytics endpoint collectors on reg.
func NewEndpoint(reg prometheus.Registerer) *Endpoint {
	e := &Endpoint{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "flowmetrics",
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmetrics",
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Errors by analytics operation",
			},
			[]string{"operation"},
		),
		empty: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowmetrics",
				Subsystem: "analytics",
				Name:      "empty_results_total",
				Help:      "Responses served as no_data_available",
			},
			[]string{"operation"},
		),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(e.latency, e.errors, e.empty)
	return e
}

// Observe records one operation outcome.
func (e *Endpoint) Observe(op string, started time.Time, err error, empty bool) {
	e.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		e.errors.WithLabelValues(op).Inc()
		return
	}
	if empty {
		e.empty.WithLabelValues(op).Inc()
	}
}
