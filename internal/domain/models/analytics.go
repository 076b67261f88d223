package models

// Signal is the discrete classification of price against an average and its bands.
type Signal string

const (
	SignalStrongBullish Signal = "strong_bullish"
	SignalBullish       Signal = "bullish"
	SignalNeutral       Signal = "neutral"
	SignalBearish       Signal = "bearish"
	SignalStrongBearish Signal = "strong_bearish"
)

// VWAPPoint is one point of a VWAP or TWAP series. For TWAP, VWAP holds the running mean of close.
type VWAPPoint struct {
	Timestamp        int64   `json:"timestamp"`
	Price            float64 `json:"price"`
	VWAP             float64 `json:"vwap"`
	UpperBand        float64 `json:"upper_band"`
	LowerBand        float64 `json:"lower_band"`
	Volume           float64 `json:"volume"`
	CumulativeVolume float64 `json:"cumulative_volume"`
	Signal           Signal  `json:"signal"`
	Strength         float64 `json:"strength"`
	DeviationPct     float64 `json:"deviation_pct"`
}

// CVDPoint is one step of the cumulative volume delta.
type CVDPoint struct {
	Timestamp  int64   `json:"timestamp"`
	NetVolume  float64 `json:"net_volume"`
	CVD        float64 `json:"cvd"`
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
}

// BinDetail is only populated for detailed profiles.
type BinDetail struct {
	CumulativeVolume float64 `json:"cumulative_volume"`
	PercentileRank   float64 `json:"percentile_rank"`
	VolumeRank       int     `json:"volume_rank"`
}

// VolumeProfileBin is one equal-width price level of a volume profile.
type VolumeProfileBin struct {
	PriceLevel       float64    `json:"price_level"`
	Volume           float64    `json:"volume"`
	BuyVolume        float64    `json:"buy_volume"`
	SellVolume       float64    `json:"sell_volume"`
	VolumePercentage float64    `json:"volume_percentage"`
	Detail           *BinDetail `json:"detail,omitempty"`
}

// VolumeProfile is the binned profile with its point of control and value area.
type VolumeProfile struct {
	Bins            []VolumeProfileBin `json:"bins"`
	POC             float64            `json:"poc"`
	VAH             float64            `json:"vah"`
	VAL             float64            `json:"val"`
	TotalVolume     float64            `json:"total_volume"`
	ValueAreaVolume float64            `json:"value_area_volume"`
	CurrentPrice    float64            `json:"current_price"`
	RangeLow        float64            `json:"range_low"`
	RangeHigh       float64            `json:"range_high"`
	BinWidth        float64            `json:"bin_width"`
	// Approximation is set when volume was allocated by distance from spot, not from a price ladder.
	Approximation bool `json:"approximation"`
}

// Regime is a coarse volatility state.
type Regime string

const (
	RegimeCalm     Regime = "Calm"
	RegimeNormal   Regime = "Normal"
	RegimeVolatile Regime = "Volatile"
)

// Regimes lists all states in ascending volatility order.
var Regimes = []Regime{RegimeCalm, RegimeNormal, RegimeVolatile}

// VolatilityInputs are the volatility measures feeding the composite score.
// The *Pct fields are raw percentages, the *Percentile fields their ranks (0-100).
type VolatilityInputs struct {
	HVPct         float64 `json:"hv_pct"`
	RVPct         float64 `json:"rv_pct"`
	ATRPct        float64 `json:"atr_pct"`
	HVPercentile  float64 `json:"hv_percentile"`
	RVPercentile  float64 `json:"rv_percentile"`
	ATRPercentile float64 `json:"atr_percentile"`
}

type RegimeClassification struct {
	Score           float64  `json:"score"`
	Regime          Regime   `json:"regime"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
}

type TransitionEstimate struct {
	TargetRegime   Regime  `json:"target_regime"`
	Probability    float64 `json:"probability"`
	TimeframeLabel string  `json:"timeframe_label"`
}

// VolatilityReport bundles the classification with its inputs and forward transitions.
type VolatilityReport struct {
	Inputs         VolatilityInputs     `json:"inputs"`
	Classification RegimeClassification `json:"classification"`
	Transitions    []TransitionEstimate `json:"transitions"`
}

// Bias is the dominant side of aggressive flow.
type Bias string

const (
	BiasBuy     Bias = "buy"
	BiasSell    Bias = "sell"
	BiasNeutral Bias = "neutral"
)

type BiasResult struct {
	Bias          Bias    `json:"bias"`
	BuyerRatio    float64 `json:"buyer_ratio"`
	SellerRatio   float64 `json:"seller_ratio"`
	Strength      float64 `json:"strength"`
	NetFlow       float64 `json:"net_flow"`
	BuyVolume     float64 `json:"buy_volume"`
	SellVolume    float64 `json:"sell_volume"`
	HighEvents    int     `json:"high_events"`
	ExtremeEvents int     `json:"extreme_events"`
}

// FlowEvent is a flow bucket whose notional crossed a large-order threshold.
type FlowEvent struct {
	Timestamp   int64   `json:"timestamp"`
	Side        Bias    `json:"side"`
	Price       float64 `json:"price"`
	BuyVolume   float64 `json:"buy_volume_quote"`
	SellVolume  float64 `json:"sell_volume_quote"`
	TotalVolume float64 `json:"total_volume"`
	NetFlow     float64 `json:"net_flow"`
	TradesCount int64   `json:"trades_count"`
}
