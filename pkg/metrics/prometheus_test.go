package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCache("vwap", "hit")
	r.RecordCache("vwap", "hit")
	r.RecordUpstream("binance", "candles", 0.2, nil)
	r.RecordUpstream("binance", "candles", 0.3, errors.New("timeout"))
	r.RecordLastPrice("BTCUSDT", 65000)
	r.RecordHTTP("GET", "/api/v1/vwap", 200, 0.01)
	r.RecordPublish("vwap", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("vwap", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamErrors.WithLabelValues("binance", "candles")))
	assert.Equal(t, 65000.0, testutil.ToFloat64(r.lastPrice.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/v1/vwap", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("vwap", "ok")))
}

func TestUpstreamHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordUpstream("rest", "flow", 0.04, nil)
	r.RecordUpstream("rest", "flow", 0.06, nil)

	obs, err := r.upstreamLatency.GetMetricWithLabelValues("rest", "flow")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, obs.(prometheus.Metric).Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.1, m.GetHistogram().GetSampleSum(), 1e-9)
}
