package normalize

import (
	"sort"
	"time"

	"FlowMetrics/internal/domain/models"
)

// Canonicalize sorts candles ascending by timestamp, keeps the last candle for a repeated
// timestamp and drops candles that break the OHLCV invariants. The input is not modified.
func Canonicalize(in []models.Candle) []models.Candle {
	byTS := make(map[int64]int, len(in))
	out := make([]models.Candle, 0, len(in))
	for _, c := range in {
		if !c.Valid() {
			continue
		}
		if i, ok := byTS[c.Timestamp]; ok {
			out[i] = c
			continue
		}
		byTS[c.Timestamp] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// ExpandDaily replicates the most recent daily candle across intraday buckets of size
// granularity, covering day start to min(now, day end). OHLC is copied unchanged. Volume
// is split evenly over the buckets of the full day so the parts never exceed the daily total.
// At most limit buckets are returned, the latest ones, in chronological order.
func ExpandDaily(daily []models.Candle, granularity time.Duration, limit int, now time.Time) []models.Candle {
	if len(daily) == 0 || granularity <= 0 || limit <= 0 {
		return []models.Candle{}
	}
	src := daily[len(daily)-1]
	start := src.Time().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	windowEnd := end
	if now.Before(windowEnd) {
		windowEnd = now
	}

	n := int(windowEnd.Sub(start) / granularity)
	if n > limit {
		n = limit
	}
	if n <= 0 {
		return []models.Candle{}
	}
	perDay := int(end.Sub(start) / granularity)
	volume := src.Volume / float64(perDay)

	// last bucket that fully fits in the window
	last := start.Add(time.Duration(int(windowEnd.Sub(start)/granularity)-1) * granularity)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		ts := last.Add(-time.Duration(n-1-i) * granularity)
		out[i] = models.Candle{
			Timestamp: ts.UnixMilli(),
			Open:      src.Open,
			High:      src.High,
			Low:       src.Low,
			Close:     src.Close,
			Volume:    volume,
		}
	}
	return out
}

// Tail returns at most the last n elements of candles.
func Tail(candles []models.Candle, n int) []models.Candle {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
