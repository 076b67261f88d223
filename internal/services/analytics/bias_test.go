package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowMetrics/internal/domain/models"
)

func TestClassifyBias(t *testing.T) {
	cases := []struct {
		buy, sell float64
		bias      models.Bias
		strength  float64
	}{
		{60, 40, models.BiasBuy, 20},
		{40, 60, models.BiasSell, 20},
		{50, 50, models.BiasNeutral, 0},
		{55, 45, models.BiasNeutral, 10},
		{0, 0, models.BiasNeutral, 0},
		{10, 0, models.BiasBuy, 100},
	}
	for _, tc := range cases {
		got := ClassifyBias(tc.buy, tc.sell)
		assert.Equal(t, tc.bias, got.Bias, "%v/%v", tc.buy, tc.sell)
		assert.InDelta(t, tc.strength, got.Strength, 1e-9)
		assert.InDelta(t, 1.0, got.BuyerRatio+got.SellerRatio, 1e-12)
		assert.Equal(t, got.BuyerRatio == 0.5, got.Strength == 0)
	}
}

func TestZScoreDetector(t *testing.T) {
	d := NewZScoreDetector()

	high, extreme := d.Count([]float64{5, 5, 5, 5})
	assert.Zero(t, high)
	assert.Zero(t, extreme)

	// mean 1, stddev 3; the outlier sits exactly at z = 3
	high, extreme = d.Count([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 10})
	assert.Equal(t, 1, high)
	assert.Equal(t, 0, extreme)

	series := make([]float64, 20)
	series[19] = 20
	high, extreme = d.Count(series)
	assert.Equal(t, 1, high)
	assert.Equal(t, 1, extreme)

	high, extreme = d.Count(nil)
	assert.Zero(t, high+extreme)
}

func TestSummarizeFlow(t *testing.T) {
	buckets := []models.FlowBucket{
		{BuyVolume: 60, SellVolume: 40},
		{BuyVolume: 30, SellVolume: 70},
	}
	res := SummarizeFlow(buckets, NewZScoreDetector())
	assert.Equal(t, models.BiasNeutral, res.Bias)
	assert.InDelta(t, -20.0, res.NetFlow, 1e-9)
	assert.InDelta(t, 90.0, res.BuyVolume, 1e-9)
	assert.Zero(t, res.HighEvents)
}

func TestBuyerRatio(t *testing.T) {
	assert.Nil(t, BuyerRatio([]models.FlowBucket{{}}))
	r := BuyerRatio([]models.FlowBucket{{BuyVolume: 3, SellVolume: 1}})
	require.NotNil(t, r)
	assert.InDelta(t, 0.75, *r, 1e-12)
}

func TestLargeFlows(t *testing.T) {
	got := LargeFlows([]models.FlowBucket{{Timestamp: 1}}, 100000)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = LargeFlows([]models.FlowBucket{
		{Timestamp: 1, BuyVolume: 80000, SellVolume: 30000, Price: 10, TradesCount: 4},
		{Timestamp: 2, BuyVolume: 10, SellVolume: 10},
		{Timestamp: 3, BuyVolume: 20000, SellVolume: 90000},
	}, 100000)
	require.Len(t, got, 2)
	assert.Equal(t, models.BiasBuy, got[0].Side)
	assert.InDelta(t, 110000.0, got[0].TotalVolume, 1e-9)
	assert.Equal(t, int64(4), got[0].TradesCount)
	assert.Equal(t, models.BiasSell, got[1].Side)
}
