package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	domsvc "FlowMetrics/internal/domain/service"
	"FlowMetrics/internal/service/cache"
	"FlowMetrics/internal/services/analytics"
	"FlowMetrics/internal/services/features"
	"FlowMetrics/internal/services/normalize"
	applogger "FlowMetrics/pkg/logger"
)

const (
	OpCandles     = "candles"
	OpVWAP        = "vwap"
	OpTWAP        = "twap"
	OpCVD         = "cvd"
	OpProfile     = "profile"
	OpVolatility  = "volatility"
	OpBias        = "bias"
	OpLargeOrders = "large-orders"

	ProfileModeAggregate = "aggregate"
	ProfileModeCandles   = "candles"

	// daily candles fetched when an intraday interval has to be interpolated
	dailyLookback = 2
	// candles fetched for volatility so percentile ranks have a rolling history
	volatilityLookback = 250
)

// TTLs sets how long each family of results stays cached.
type TTLs struct {
	Flow       time.Duration
	Candles    time.Duration
	Volatility time.Duration
	Price      time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Flow:       5 * time.Second,
		Candles:    10 * time.Second,
		Volatility: 30 * time.Second,
		Price:      5 * time.Minute,
	}
}

// Observer records per-operation latency and outcome.
type Observer interface {
	Observe(op string, started time.Time, err error, empty bool)
}

// Recorder exports last prices, publish outcomes and failure kinds.
type Recorder interface {
	RecordLastPrice(symbol string, price float64)
	RecordPublish(op string, err error)
	RecordError(kind string)
}

// ProfileParams are the volume profile specific query fields.
type ProfileParams struct {
	Bins     int
	Detailed bool
	Mode     string
}

// MetricsUseCase serves every analytics operation through the compute cache.
// Results are either computed from real provider data or explicitly empty.
type MetricsUseCase struct {
	gw        domrepo.MarketGateway
	compute   *cache.Compute
	ttl       TTLs
	publisher domrepo.SnapshotPublisher
	observer  Observer
	rec       Recorder
	outliers  domsvc.OutlierCounter
	regimes   domsvc.RegimeClassifier
	l         *applogger.Logger
	now       func() time.Time
}

type Option func(*MetricsUseCase)

func WithTTLs(t TTLs) Option { return func(uc *MetricsUseCase) { uc.ttl = t } }

func WithPublisher(p domrepo.SnapshotPublisher) Option {
	return func(uc *MetricsUseCase) { uc.publisher = p }
}

func WithObserver(o Observer) Option { return func(uc *MetricsUseCase) { uc.observer = o } }

func WithRecorder(r Recorder) Option { return func(uc *MetricsUseCase) { uc.rec = r } }

func WithOutlierCounter(c domsvc.OutlierCounter) Option {
	return func(uc *MetricsUseCase) { uc.outliers = c }
}

func WithRegimeClassifier(c domsvc.RegimeClassifier) Option {
	return func(uc *MetricsUseCase) { uc.regimes = c }
}

func WithLogger(l *applogger.Logger) Option { return func(uc *MetricsUseCase) { uc.l = l } }

func WithClock(now func() time.Time) Option { return func(uc *MetricsUseCase) { uc.now = now } }

func NewMetricsUseCase(gw domrepo.MarketGateway, compute *cache.Compute, opts ...Option) *MetricsUseCase {
	uc := &MetricsUseCase{
		gw:       gw,
		compute:  compute,
		ttl:      DefaultTTLs(),
		outliers: analytics.NewZScoreDetector(),
		regimes:  analytics.NewRegimeDetector(),
		l:        applogger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.compute == nil {
		uc.compute = cache.NewCompute(nil)
	}
	return uc
}

// Source is the name of the upstream gateway.
func (uc *MetricsUseCase) Source() string { return uc.gw.Name() }

func (uc *MetricsUseCase) Candles(ctx context.Context, q Query) (Result[[]models.Candle], error) {
	return run(ctx, uc, OpCandles, q, uc.ttl.Candles, nil, func(ctx context.Context, q Query) (Result[[]models.Candle], error) {
		candles, note, err := uc.fetchCandles(ctx, q, q.Limit)
		if err != nil {
			return Result[[]models.Candle]{}, err
		}
		return found(candles, len(candles), note), nil
	})
}

func (uc *MetricsUseCase) VWAP(ctx context.Context, q Query) (Result[[]models.VWAPPoint], error) {
	return uc.series(ctx, OpVWAP, q, analytics.ComputeVWAP)
}

func (uc *MetricsUseCase) TWAP(ctx context.Context, q Query) (Result[[]models.VWAPPoint], error) {
	return uc.series(ctx, OpTWAP, q, analytics.ComputeTWAP)
}

func (uc *MetricsUseCase) series(ctx context.Context, op string, q Query, compute func([]models.Candle) []models.VWAPPoint) (Result[[]models.VWAPPoint], error) {
	return run(ctx, uc, op, q, uc.ttl.Candles, nil, func(ctx context.Context, q Query) (Result[[]models.VWAPPoint], error) {
		candles, note, err := uc.fetchCandles(ctx, q, q.Limit)
		if err != nil {
			return Result[[]models.VWAPPoint]{}, err
		}
		points := compute(candles)
		return found(points, len(points), note), nil
	})
}

func (uc *MetricsUseCase) CVD(ctx context.Context, q Query) (Result[[]models.CVDPoint], error) {
	return run(ctx, uc, OpCVD, q, uc.ttl.Flow, nil, func(ctx context.Context, q Query) (Result[[]models.CVDPoint], error) {
		buckets, err := uc.fetchFlow(ctx, q, q.Limit)
		if err != nil {
			return Result[[]models.CVDPoint]{}, err
		}
		points := analytics.ComputeCVD(buckets)
		return found(points, len(points), ""), nil
	})
}

// VolumeProfile builds a profile around the current price from aggregate candle volume,
// or per candle when p.Mode is ProfileModeCandles. Missing flow only drops the buy/sell split.
func (uc *MetricsUseCase) VolumeProfile(ctx context.Context, q Query, p ProfileParams) (Result[*models.VolumeProfile], error) {
	if p.Bins <= 0 {
		p.Bins = analytics.DefaultProfileBins
	}
	if p.Mode != ProfileModeCandles {
		p.Mode = ProfileModeAggregate
	}
	extra := []string{strconv.Itoa(p.Bins), strconv.FormatBool(p.Detailed), p.Mode}
	return run(ctx, uc, OpProfile, q, uc.ttl.Candles, extra, func(ctx context.Context, q Query) (Result[*models.VolumeProfile], error) {
		candles, note, err := uc.fetchCandles(ctx, q, q.Limit)
		if err != nil {
			return Result[*models.VolumeProfile]{}, err
		}
		if len(candles) == 0 {
			return notFound[*models.VolumeProfile](note), nil
		}

		var (
			ratio     *float64
			flowPrice float64
			flowOK    bool
		)
		flow, ferr := uc.fetchFlow(ctx, q, q.Limit)
		if ferr != nil {
			uc.l.Warn("flow unavailable for volume profile",
				applogger.String("symbol", q.Symbol),
				applogger.Error(ferr),
			)
		} else {
			ratio = analytics.BuyerRatio(flow)
			flowPrice, flowOK = normalize.LastPrice(flow)
		}
		if ratio == nil {
			note = joinNotes(note, NoteFlowUnavailable)
		}

		var profile models.VolumeProfile
		if p.Mode == ProfileModeCandles {
			profile = analytics.ProfileFromCandles(candles, p.Bins, ratio, p.Detailed)
		} else {
			closePrice, closeOK := lastClose(candles)
			price, _, ok := resolvePrice(ctx,
				fixedPrice("flow", flowPrice, flowOK),
				fixedPrice("candles", closePrice, closeOK),
				uc.cachedPrice(q.Symbol),
			)
			if !ok {
				return notFound[*models.VolumeProfile](joinNotes(note, NoteNoPrice)), nil
			}
			profile = analytics.BuildProfile(totalVolume(candles), price, analytics.ProfileOptions{
				Bins:       p.Bins,
				BuyerRatio: ratio,
				Detailed:   p.Detailed,
			})
		}
		if profile.TotalVolume <= 0 {
			return notFound[*models.VolumeProfile](note), nil
		}
		return found(&profile, len(profile.Bins), note), nil
	})
}

// Volatility derives HV, RV and ATR inputs from candles and classifies the regime.
func (uc *MetricsUseCase) Volatility(ctx context.Context, q Query) (Result[*models.VolatilityReport], error) {
	return run(ctx, uc, OpVolatility, q, uc.ttl.Volatility, nil, func(ctx context.Context, q Query) (Result[*models.VolatilityReport], error) {
		limit := q.Limit
		if limit < volatilityLookback {
			limit = volatilityLookback
		}
		candles, note, err := uc.fetchCandles(ctx, q, limit)
		if err != nil {
			return Result[*models.VolatilityReport]{}, err
		}
		// expanded daily buckets repeat one price and carry no returns
		if note == NoteInterpolated {
			return notFound[*models.VolatilityReport](joinNotes(note, NoteInsufficientData)), nil
		}
		inputs, err := features.VolatilityInputs(candles, q.Interval)
		if errors.Is(err, features.ErrInsufficientData) {
			return notFound[*models.VolatilityReport](joinNotes(note, NoteInsufficientData)), nil
		}
		if err != nil {
			return Result[*models.VolatilityReport]{}, err
		}
		class := uc.regimes.Classify(inputs)
		report := &models.VolatilityReport{
			Inputs:         inputs,
			Classification: class,
			Transitions:    uc.regimes.Transitions(class, q.Interval),
		}
		return found(report, 1, note), nil
	})
}

func (uc *MetricsUseCase) Bias(ctx context.Context, q Query) (Result[*models.BiasResult], error) {
	return run(ctx, uc, OpBias, q, uc.ttl.Flow, nil, func(ctx context.Context, q Query) (Result[*models.BiasResult], error) {
		buckets, err := uc.fetchFlow(ctx, q, q.Limit)
		if err != nil {
			return Result[*models.BiasResult]{}, err
		}
		if len(buckets) == 0 {
			return notFound[*models.BiasResult](""), nil
		}
		res := analytics.SummarizeFlow(buckets, uc.outliers)
		return found(&res, len(buckets), ""), nil
	})
}

// LargeOrders returns flow buckets whose quote notional reaches minNotional.
func (uc *MetricsUseCase) LargeOrders(ctx context.Context, q Query, minNotional float64) (Result[[]models.FlowEvent], error) {
	if minNotional < 0 {
		minNotional = 0
	}
	extra := []string{strconv.FormatFloat(minNotional, 'f', -1, 64)}
	return run(ctx, uc, OpLargeOrders, q, uc.ttl.Flow, extra, func(ctx context.Context, q Query) (Result[[]models.FlowEvent], error) {
		buckets, err := uc.fetchFlow(ctx, q, q.Limit)
		if err != nil {
			return Result[[]models.FlowEvent]{}, err
		}
		events := analytics.LargeFlows(buckets, minNotional)
		return found(events, len(events), ""), nil
	})
}

func run[T any](ctx context.Context, uc *MetricsUseCase, op string, q Query, ttl time.Duration, extra []string,
	fn func(context.Context, Query) (Result[T], error)) (Result[T], error) {
	started := time.Now()
	q, err := q.Normalize()
	if err != nil {
		uc.observe(op, started, err, false)
		return Result[T]{}, err
	}

	key := cacheKey(op, q, extra...)
	res, outcome, err := cache.GetOrCompute(ctx, uc.compute, key, ttl, func(ctx context.Context) (Result[T], error) {
		r, err := fn(ctx, q)
		if err != nil {
			return r, err
		}
		r.Meta.Symbol = q.Symbol
		r.Meta.Interval = string(q.Interval)
		r.Meta.Limit = q.Limit
		r.Meta.Source = uc.gw.Name()
		r.Meta.LastUpdated = uc.now().UTC()
		return r, nil
	})
	uc.observe(op, started, err, err == nil && res.Meta.Empty())
	if err != nil {
		uc.recordError(err)
		uc.l.Warn("analytics operation failed",
			applogger.String("op", op),
			applogger.String("symbol", q.Symbol),
			applogger.String("interval", string(q.Interval)),
			applogger.Error(err),
		)
		return Result[T]{}, fmt.Errorf("%s %s: %w", op, q.Symbol, err)
	}
	if outcome.Fresh && !res.Meta.Empty() {
		uc.publish(ctx, q.Symbol, op, res)
	}
	return res, nil
}

func cacheKey(op string, q Query, extra ...string) string {
	parts := append([]string{op, q.Symbol, q.Exchange, string(q.Interval), strconv.Itoa(q.Limit)}, extra...)
	return strings.Join(parts, "_")
}

func (uc *MetricsUseCase) observe(op string, started time.Time, err error, empty bool) {
	if uc.observer != nil {
		uc.observer.Observe(op, started, err, empty)
	}
}

func (uc *MetricsUseCase) publish(ctx context.Context, symbol, op string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishSnapshot(ctx, symbol, op, payload)
	if uc.rec != nil {
		uc.rec.RecordPublish(op, err)
	}
	if err != nil {
		uc.l.Warn("snapshot publish failed",
			applogger.String("op", op),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

// fetchCandles returns canonical candles at q.Interval. When the provider lacks the interval
// the latest daily candle is expanded and the note says so.
func (uc *MetricsUseCase) fetchCandles(ctx context.Context, q Query, limit int) ([]models.Candle, string, error) {
	if uc.gw.Supports(q.Interval) {
		raw, err := uc.gw.FetchCandles(ctx, q.Symbol, q.Interval, limit)
		if err != nil {
			return nil, "", err
		}
		candles := normalize.Tail(normalize.Canonicalize(raw), limit)
		uc.rememberPrice(ctx, q.Symbol, candles)
		return candles, "", nil
	}
	if !q.Interval.Intraday() || !uc.gw.Supports(domrepo.Interval1d) {
		return []models.Candle{}, NoteIntervalUnsupported, nil
	}
	raw, err := uc.gw.FetchCandles(ctx, q.Symbol, domrepo.Interval1d, dailyLookback)
	if err != nil {
		return nil, "", err
	}
	daily := normalize.Canonicalize(raw)
	uc.rememberPrice(ctx, q.Symbol, daily)
	return normalize.ExpandDaily(daily, q.Interval.Duration(), limit, uc.now()), NoteInterpolated, nil
}

// fetchFlow returns the latest limit buckets. Buckets without a price take the cached last price.
func (uc *MetricsUseCase) fetchFlow(ctx context.Context, q Query, limit int) ([]models.FlowBucket, error) {
	raw, err := uc.gw.FetchFlow(ctx, q.Symbol, q.Interval, limit)
	if err != nil {
		return nil, err
	}
	if len(raw) > limit {
		raw = raw[len(raw)-limit:]
	}
	buckets := make([]models.FlowBucket, len(raw))
	copy(buckets, raw)

	if missingPrice(buckets) {
		if p, _, ok := resolvePrice(ctx, uc.cachedPrice(q.Symbol)); ok {
			buckets = normalize.BackfillPrice(buckets, p)
		}
	}
	if p, ok := normalize.LastPrice(buckets); ok {
		uc.storePrice(ctx, q.Symbol, p)
	}
	return buckets, nil
}

func (uc *MetricsUseCase) rememberPrice(ctx context.Context, symbol string, candles []models.Candle) {
	if p, ok := lastClose(candles); ok {
		uc.storePrice(ctx, symbol, p)
	}
}

func (uc *MetricsUseCase) storePrice(ctx context.Context, symbol string, price float64) {
	if price <= 0 {
		return
	}
	if err := uc.compute.Remember(ctx, priceKey(symbol), price, uc.ttl.Price); err != nil {
		uc.l.Warn("last price not cached", applogger.String("symbol", symbol), applogger.Error(err))
	}
	if uc.rec != nil {
		uc.rec.RecordLastPrice(symbol, price)
	}
}

func (uc *MetricsUseCase) recordError(err error) {
	if uc.rec == nil {
		return
	}
	if errors.Is(err, domrepo.ErrUpstreamUnavailable) {
		uc.rec.RecordError("upstream")
		return
	}
	uc.rec.RecordError("compute")
}

func lastClose(candles []models.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	c := candles[len(candles)-1].Close
	return c, c > 0
}

func totalVolume(candles []models.Candle) float64 {
	var v float64
	for _, c := range candles {
		v += c.Volume
	}
	return v
}

func missingPrice(buckets []models.FlowBucket) bool {
	for _, b := range buckets {
		if b.Price <= 0 {
			return true
		}
	}
	return false
}
