package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowMetrics/internal/domain/models"
)

func TestComputeVWAPSingleCandle(t *testing.T) {
	pts := ComputeVWAP([]models.Candle{{Timestamp: 1, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}})
	require.Len(t, pts, 1)
	p := pts[0]
	assert.InDelta(t, 101.0, p.VWAP, 1e-9)
	assert.InDelta(t, 101.101, p.UpperBand, 1e-9)
	assert.InDelta(t, 100.899, p.LowerBand, 1e-9)
	assert.Equal(t, models.SignalStrongBullish, p.Signal)
	assert.InDelta(t, 100.0/101.0*2, p.Strength, 1e-9)
	assert.InDelta(t, 10.0, p.CumulativeVolume, 1e-9)
}

func TestComputeVWAPZeroVolumeUsesTypicalPrice(t *testing.T) {
	pts := ComputeVWAP([]models.Candle{{Open: 10, High: 12, Low: 8, Close: 10, Volume: 0}})
	require.Len(t, pts, 1)
	assert.InDelta(t, 10.0, pts[0].VWAP, 1e-9)
	assert.Equal(t, models.SignalNeutral, pts[0].Signal)
	assert.Zero(t, pts[0].Strength)
}

func TestComputeVWAPBandsContainMean(t *testing.T) {
	candles := []models.Candle{
		{Timestamp: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 5},
		{Timestamp: 2, Open: 100, High: 110, Low: 100, Close: 109, Volume: 1},
		{Timestamp: 3, Open: 109, High: 109, Low: 90, Close: 91, Volume: 20},
		{Timestamp: 4, Open: 91, High: 95, Low: 91, Close: 94, Volume: 0},
	}
	for _, series := range [][]models.VWAPPoint{ComputeVWAP(candles), ComputeTWAP(candles)} {
		require.Len(t, series, len(candles))
		for i, p := range series {
			assert.LessOrEqual(t, p.LowerBand, p.VWAP, "point %d", i)
			assert.LessOrEqual(t, p.VWAP, p.UpperBand, "point %d", i)
			assert.LessOrEqual(t, p.Strength, 100.0)
		}
	}
}

func TestComputeTWAPRunningMean(t *testing.T) {
	pts := ComputeTWAP([]models.Candle{
		{Open: 10, High: 10, Low: 10, Close: 10, Volume: 1},
		{Open: 20, High: 20, Low: 20, Close: 20, Volume: 100},
	})
	require.Len(t, pts, 2)
	assert.InDelta(t, 10.0, pts[0].VWAP, 1e-9)
	assert.InDelta(t, 15.0, pts[1].VWAP, 1e-9)
	// width = max(5*0.015, 15*0.005) = 0.075, so 20 sits above the upper band
	assert.InDelta(t, 15.075, pts[1].UpperBand, 1e-9)
	assert.Equal(t, models.SignalStrongBullish, pts[1].Signal)
}

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		want  models.Signal
	}{
		{"above upper", 106, models.SignalStrongBullish},
		{"above mean", 102, models.SignalBullish},
		{"below lower", 94, models.SignalStrongBearish},
		{"below mean", 98, models.SignalBearish},
		{"at mean", 100, models.SignalNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig, strength, dev := Classify(tc.price, 100, 105, 95)
			assert.Equal(t, tc.want, sig)
			assert.InDelta(t, tc.price-100, dev, 1e-9)
			switch sig {
			case models.SignalStrongBullish, models.SignalStrongBearish:
				assert.InDelta(t, 12.0, strength, 1e-9)
			case models.SignalNeutral:
				assert.Zero(t, strength)
			default:
				assert.InDelta(t, 6.0, strength, 1e-9)
			}
		})
	}
}

func TestClassifyZeroMean(t *testing.T) {
	sig, strength, dev := Classify(0, 0, 0, 0)
	assert.Equal(t, models.SignalNeutral, sig)
	assert.Zero(t, strength)
	assert.Zero(t, dev)
}
