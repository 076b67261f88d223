package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	"FlowMetrics/internal/service/cache"
)

type fakeGateway struct {
	intervals   map[domrepo.Interval]bool
	candles     []models.Candle
	flow        []models.FlowBucket
	candleErr   error
	flowErr     error
	candleCalls int
	flowCalls   int
	lastIv      domrepo.Interval
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Supports(iv domrepo.Interval) bool {
	if f.intervals == nil {
		return true
	}
	return f.intervals[iv]
}

func (f *fakeGateway) FetchCandles(_ context.Context, _ string, iv domrepo.Interval, _ int) ([]models.Candle, error) {
	f.candleCalls++
	f.lastIv = iv
	if f.candleErr != nil {
		return nil, f.candleErr
	}
	return f.candles, nil
}

func (f *fakeGateway) FetchFlow(context.Context, string, domrepo.Interval, int) ([]models.FlowBucket, error) {
	f.flowCalls++
	if f.flowErr != nil {
		return nil, f.flowErr
	}
	return f.flow, nil
}

type snapshot struct{ symbol, op string }

type fakePublisher struct {
	got []snapshot
	err error
}

func (p *fakePublisher) PublishSnapshot(_ context.Context, symbol, op string, _ interface{}) error {
	p.got = append(p.got, snapshot{symbol, op})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type observation struct {
	op           string
	failed, none bool
}

type fakeObserver struct{ got []observation }

func (o *fakeObserver) Observe(op string, _ time.Time, err error, empty bool) {
	o.got = append(o.got, observation{op, err != nil, empty})
}

var fixedNow = time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)

func newUseCase(gw *fakeGateway, opts ...Option) *MetricsUseCase {
	clock := func() time.Time { return fixedNow }
	compute := cache.NewCompute(cache.NewTTLCache(cache.WithClock(clock)))
	return NewMetricsUseCase(gw, compute, append([]Option{WithClock(clock)}, opts...)...)
}

func upstreamDown() error {
	return &domrepo.GatewayError{Provider: "fake", Op: "candles", Status: 503, Err: errors.New("down")}
}

func TestVWAPSingleCandle(t *testing.T) {
	gw := &fakeGateway{candles: []models.Candle{{Timestamp: 1, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}}}
	uc := newUseCase(gw)

	res, err := uc.VWAP(context.Background(), Query{Symbol: "btcusdt", Interval: domrepo.Interval5m})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	p := res.Data[0]
	assert.InDelta(t, 101.0, p.VWAP, 1e-9)
	assert.InDelta(t, 101.101, p.UpperBand, 1e-9)
	assert.InDelta(t, 100.899, p.LowerBand, 1e-9)
	assert.Equal(t, models.SignalStrongBullish, p.Signal)

	assert.Equal(t, Meta{
		Symbol:      "BTCUSDT",
		Interval:    "5m",
		Limit:       DefaultLimit,
		Source:      "fake",
		DataType:    DataTypeReal,
		Count:       1,
		LastUpdated: fixedNow,
	}, res.Meta)
}

func TestCVDIsSequential(t *testing.T) {
	gw := &fakeGateway{flow: []models.FlowBucket{
		{Timestamp: 1, BuyVolume: 60, SellVolume: 40, Price: 10},
		{Timestamp: 2, BuyVolume: 30, SellVolume: 70, Price: 10},
	}}
	uc := newUseCase(gw)

	res, err := uc.CVD(context.Background(), Query{Symbol: "ETHUSDT", Interval: domrepo.Interval1m})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, 20.0, res.Data[0].CVD)
	assert.Equal(t, -20.0, res.Data[1].CVD)
	assert.Equal(t, -40.0, res.Data[1].NetVolume)
}

func TestLargeOrdersZeroVolumeIsEmpty(t *testing.T) {
	gw := &fakeGateway{flow: []models.FlowBucket{{Timestamp: 1, Price: 10}}}
	uc := newUseCase(gw)

	res, err := uc.LargeOrders(context.Background(), Query{Symbol: "BTCUSDT"}, 100000)
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Equal(t, DataTypeNone, res.Meta.DataType)
	assert.Equal(t, 0, res.Meta.Count)
}

func TestUpstreamFailureIsNotCached(t *testing.T) {
	gw := &fakeGateway{candleErr: upstreamDown()}
	obs := &fakeObserver{}
	uc := newUseCase(gw, WithObserver(obs))

	_, err := uc.Candles(context.Background(), Query{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domrepo.ErrUpstreamUnavailable)

	gw.candleErr = nil
	gw.candles = []models.Candle{{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 2, Volume: 3}}
	res, err := uc.Candles(context.Background(), Query{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 2, gw.candleCalls)
	assert.Equal(t, []observation{{OpCandles, true, false}, {OpCandles, false, false}}, obs.got)
}

func TestCacheHitSkipsGatewayAndPublishesOnce(t *testing.T) {
	gw := &fakeGateway{candles: []models.Candle{{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 2, Volume: 3}}}
	pub := &fakePublisher{}
	uc := newUseCase(gw, WithPublisher(pub))

	q := Query{Symbol: "BTCUSDT", Interval: domrepo.Interval1h, Limit: 50}
	first, err := uc.TWAP(context.Background(), q)
	require.NoError(t, err)
	second, err := uc.TWAP(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.candleCalls)
	assert.Equal(t, []snapshot{{"BTCUSDT", OpTWAP}}, pub.got)
}

func TestPublishFailureDoesNotFailQuery(t *testing.T) {
	gw := &fakeGateway{flow: []models.FlowBucket{{Timestamp: 1, BuyVolume: 1, SellVolume: 1, Price: 1}}}
	uc := newUseCase(gw, WithPublisher(&fakePublisher{err: errors.New("broker down")}))

	res, err := uc.Bias(context.Background(), Query{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Equal(t, models.BiasNeutral, res.Data.Bias)
}

func TestIntradayInterpolatedFromDaily(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		intervals: map[domrepo.Interval]bool{domrepo.Interval1d: true},
		candles:   []models.Candle{{Timestamp: day.UnixMilli(), Open: 100, High: 110, Low: 90, Close: 105, Volume: 240}},
	}
	uc := newUseCase(gw)

	res, err := uc.Candles(context.Background(), Query{Symbol: "BTCUSDT", Interval: domrepo.Interval1h})
	require.NoError(t, err)
	assert.Equal(t, domrepo.Interval1d, gw.lastIv)
	assert.Equal(t, NoteInterpolated, res.Meta.Note)
	require.Len(t, res.Data, 5)
	assert.Equal(t, day.UnixMilli(), res.Data[0].Timestamp)
	assert.Equal(t, day.Add(4*time.Hour).UnixMilli(), res.Data[4].Timestamp)
	for _, c := range res.Data {
		assert.Equal(t, 105.0, c.Close)
		assert.Equal(t, 10.0, c.Volume)
	}
}

func TestUnsupportedIntervalIsEmpty(t *testing.T) {
	gw := &fakeGateway{intervals: map[domrepo.Interval]bool{domrepo.Interval5m: true}}
	uc := newUseCase(gw)

	res, err := uc.VWAP(context.Background(), Query{Symbol: "BTCUSDT", Interval: domrepo.Interval1d})
	require.NoError(t, err)
	assert.Equal(t, DataTypeNone, res.Meta.DataType)
	assert.Equal(t, NoteIntervalUnsupported, res.Meta.Note)
	assert.Zero(t, gw.candleCalls)
}

func TestLargeOrdersBackfillsCachedPrice(t *testing.T) {
	gw := &fakeGateway{
		candles: []models.Candle{{Timestamp: 1, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}},
		flow:    []models.FlowBucket{{Timestamp: 1, BuyVolume: 150000, SellVolume: 10000}},
	}
	uc := newUseCase(gw)

	_, err := uc.Candles(context.Background(), Query{Symbol: "BTCUSDT"})
	require.NoError(t, err)

	res, err := uc.LargeOrders(context.Background(), Query{Symbol: "BTCUSDT"}, 100000)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, 102.0, res.Data[0].Price)
	assert.Equal(t, models.BiasBuy, res.Data[0].Side)
	// the fake's slice is left untouched
	assert.Zero(t, gw.flow[0].Price)
}

func TestVolumeProfileWithoutFlow(t *testing.T) {
	gw := &fakeGateway{
		candles: []models.Candle{
			{Timestamp: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 50},
			{Timestamp: 2, Open: 100, High: 101, Low: 99, Close: 100, Volume: 50},
		},
		flowErr: upstreamDown(),
	}
	uc := newUseCase(gw)

	res, err := uc.VolumeProfile(context.Background(), Query{Symbol: "BTCUSDT", Interval: domrepo.Interval1h}, ProfileParams{Bins: 10})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Equal(t, DataTypeReal, res.Meta.DataType)
	assert.Equal(t, NoteFlowUnavailable, res.Meta.Note)
	assert.True(t, res.Data.Approximation)
	assert.Len(t, res.Data.Bins, 10)
	assert.InDelta(t, 100.0, res.Data.TotalVolume, 1e-9)
	assert.InDelta(t, 95.0, res.Data.RangeLow, 1e-9)
	for _, b := range res.Data.Bins {
		assert.Zero(t, b.BuyVolume)
		assert.Zero(t, b.SellVolume)
	}
}

func TestVolumeProfileSplitsByBuyerRatio(t *testing.T) {
	gw := &fakeGateway{
		candles: []models.Candle{{Timestamp: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100}},
		flow:    []models.FlowBucket{{Timestamp: 1, BuyVolume: 75, SellVolume: 25, Price: 200}},
	}
	uc := newUseCase(gw)

	res, err := uc.VolumeProfile(context.Background(), Query{Symbol: "BTCUSDT"}, ProfileParams{Detailed: true})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	// flow price wins over the candle close
	assert.Equal(t, 200.0, res.Data.CurrentPrice)
	assert.Len(t, res.Data.Bins, 20)
	for _, b := range res.Data.Bins {
		assert.InDelta(t, b.Volume*0.75, b.BuyVolume, 1e-9)
		require.NotNil(t, b.Detail)
	}
}

func TestVolumeProfileNoCandles(t *testing.T) {
	uc := newUseCase(&fakeGateway{})

	res, err := uc.VolumeProfile(context.Background(), Query{Symbol: "BTCUSDT"}, ProfileParams{})
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	assert.Equal(t, DataTypeNone, res.Meta.DataType)
}

func TestVolatilityInsufficientCandles(t *testing.T) {
	gw := &fakeGateway{candles: []models.Candle{{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 2, Volume: 3}}}
	uc := newUseCase(gw)

	res, err := uc.Volatility(context.Background(), Query{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	assert.Equal(t, NoteInsufficientData, res.Meta.Note)
}

func TestVolatilityRefusesInterpolatedCandles(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		intervals: map[domrepo.Interval]bool{domrepo.Interval1d: true},
		candles:   []models.Candle{{Timestamp: day.UnixMilli(), Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 288}},
	}
	pub := &fakePublisher{}
	uc := newUseCase(gw, WithPublisher(pub))

	res, err := uc.Volatility(context.Background(), Query{Symbol: "BTCUSDT", Interval: domrepo.Interval5m})
	require.NoError(t, err)
	assert.Equal(t, domrepo.Interval1d, gw.lastIv)
	assert.Nil(t, res.Data)
	assert.Equal(t, DataTypeNone, res.Meta.DataType)
	assert.Equal(t, NoteInterpolated+";"+NoteInsufficientData, res.Meta.Note)
	assert.Empty(t, pub.got)
}

func TestVolatilityReport(t *testing.T) {
	candles := make([]models.Candle, 60)
	for i := range candles {
		c := 100 + float64(i%7)
		candles[i] = models.Candle{
			Timestamp: int64(i) * 3600000,
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1.5,
			Close:     c,
			Volume:    10,
		}
	}
	uc := newUseCase(&fakeGateway{candles: candles})

	res, err := uc.Volatility(context.Background(), Query{Symbol: "BTCUSDT", Interval: domrepo.Interval1h})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Equal(t, DataTypeReal, res.Meta.DataType)
	assert.Contains(t, models.Regimes, res.Data.Classification.Regime)
	assert.GreaterOrEqual(t, res.Data.Classification.Confidence, 0.0)
	assert.LessOrEqual(t, res.Data.Classification.Confidence, 100.0)
	require.Len(t, res.Data.Transitions, 9)
	assert.Equal(t, "24h", res.Data.Transitions[0].TimeframeLabel)
}

func TestInvalidSymbol(t *testing.T) {
	uc := newUseCase(&fakeGateway{})

	_, err := uc.Bias(context.Background(), Query{Symbol: "  "})
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, MinLimit, ClampLimit(5))
	assert.Equal(t, MaxLimit, ClampLimit(5000))
	assert.Equal(t, 250, ClampLimit(250))
}

func TestCacheKey(t *testing.T) {
	q, err := Query{Symbol: "btcusdt", Exchange: "Binance", Interval: domrepo.Interval15m, Limit: 30}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "vwap_BTCUSDT_binance_15m_30", cacheKey(OpVWAP, q))
	assert.Equal(t, "large-orders_BTCUSDT_binance_15m_30_100000", cacheKey(OpLargeOrders, q, "100000"))
}

func TestResolvePriceOrder(t *testing.T) {
	p, name, ok := resolvePrice(context.Background(),
		fixedPrice("flow", 0, false),
		fixedPrice("candles", 0, true),
		fixedPrice("cache", 42, true),
	)
	assert.True(t, ok)
	assert.Equal(t, 42.0, p)
	assert.Equal(t, "cache", name)

	_, _, ok = resolvePrice(context.Background(), fixedPrice("flow", 0, false))
	assert.False(t, ok)
}

type fakeRecorder struct {
	prices    map[string]float64
	published []string
	errors    []string
}

func (r *fakeRecorder) RecordLastPrice(symbol string, price float64) {
	if r.prices == nil {
		r.prices = map[string]float64{}
	}
	r.prices[symbol] = price
}

func (r *fakeRecorder) RecordPublish(op string, err error) {
	if err == nil {
		r.published = append(r.published, op)
	}
}

func (r *fakeRecorder) RecordError(kind string) { r.errors = append(r.errors, kind) }

func TestRecorderSeesPricesPublishesAndErrors(t *testing.T) {
	gw := &fakeGateway{flow: []models.FlowBucket{{Timestamp: 1, BuyVolume: 3, SellVolume: 1, Price: 64000}}}
	rec := &fakeRecorder{}
	uc := newUseCase(gw, WithRecorder(rec), WithPublisher(&fakePublisher{}))

	_, err := uc.Bias(context.Background(), Query{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, 64000.0, rec.prices["BTCUSDT"])
	assert.Equal(t, []string{OpBias}, rec.published)

	gw.flowErr = upstreamDown()
	_, err = uc.CVD(context.Background(), Query{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.Equal(t, []string{"upstream"}, rec.errors)
}
