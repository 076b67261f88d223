package analytics

import (
	"math"

	"github.com/markcheno/go-talib"

	domsvc "FlowMetrics/internal/domain/service"
)

const (
	DefaultHighZ    = 2.0
	DefaultExtremeZ = 3.0
)

// ZScoreDetector counts points whose absolute z-score exceeds the high and extreme thresholds.
// Extreme events are also counted as high events.
type ZScoreDetector struct {
	HighZ    float64
	ExtremeZ float64
}

func NewZScoreDetector() *ZScoreDetector {
	return &ZScoreDetector{HighZ: DefaultHighZ, ExtremeZ: DefaultExtremeZ}
}

func (d *ZScoreDetector) Count(values []float64) (high, extreme int) {
	mean, std := meanStd(values)
	if std == 0 {
		return 0, 0
	}
	for _, v := range values {
		z := math.Abs(v-mean) / std
		if z > d.HighZ {
			high++
		}
		if z > d.ExtremeZ {
			extreme++
		}
	}
	return high, extreme
}

// meanStd returns the mean and population standard deviation over the whole series.
func meanStd(values []float64) (float64, float64) {
	n := len(values)
	switch n {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean := talib.Sma(values, n)[n-1]
	std := talib.StdDev(values, n, 1)[n-1]
	if math.IsNaN(std) {
		return mean, 0
	}
	return mean, std
}

var _ domsvc.OutlierCounter = (*ZScoreDetector)(nil)
