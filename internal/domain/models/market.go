package models

import (
	"math"
	"time"
)

// Candle represents an OHLCV bar. Timestamp is the bar open time in ms UTC.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time in UTC.
func (c Candle) Time() time.Time { return time.UnixMilli(c.Timestamp).UTC() }

// Valid reports whether the candle satisfies the OHLCV invariants.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Volume < 0 {
		return false
	}
	return c.High >= math.Max(c.Open, c.Close) && c.Low <= math.Min(c.Open, c.Close)
}

// FlowBucket holds aggressive buy/sell quote volume for one sampling interval.
type FlowBucket struct {
	Timestamp   int64   `json:"timestamp"`
	BuyVolume   float64 `json:"buy_volume_quote"`
	SellVolume  float64 `json:"sell_volume_quote"`
	TradesCount int64   `json:"trades_count"`
	Price       float64 `json:"price"`
}

// TotalVolume is buy + sell quote volume.
func (b FlowBucket) TotalVolume() float64 { return b.BuyVolume + b.SellVolume }

// NetFlow is buy - sell quote volume.
func (b FlowBucket) NetFlow() float64 { return b.BuyVolume - b.SellVolume }

// RawFlowBucket is a flow record as delivered by a provider, where any field may be absent.
type RawFlowBucket struct {
	Timestamp   *int64
	BuyVolume   *float64
	SellVolume  *float64
	TradesCount *int64
	Price       *float64
}
