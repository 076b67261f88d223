package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheTotal      *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	published       *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowmetrics_cache_requests_total",
				Help: "Compute cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowmetrics_upstream_duration_seconds",
				Help:    "Duration of market data provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		upstreamErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowmetrics_upstream_errors_total",
				Help: "Failed market data provider calls",
			},
			[]string{"provider", "operation"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowmetrics_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flowmetrics_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowmetrics_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowmetrics_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowmetrics_snapshots_published_total",
				Help: "Snapshots published to the stream by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// RecordCache records a compute cache outcome.
func (r *Recorder) RecordCache(op, result string) {
	r.cacheTotal.WithLabelValues(op, result).Inc()
}

// RecordUpstream records the latency of a provider call and counts it as failed when err is set.
func (r *Recorder) RecordUpstream(provider, op string, seconds float64, err error) {
	r.upstreamLatency.WithLabelValues(provider, op).Observe(seconds)
	if err != nil {
		r.upstreamErrors.WithLabelValues(provider, op).Inc()
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordHTTP records one served request.
func (r *Recorder) RecordHTTP(method, route string, status int, seconds float64) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

// RecordPublish records a snapshot publish attempt.
func (r *Recorder) RecordPublish(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.published.WithLabelValues(op, outcome).Inc()
}
