package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	applogger "FlowMetrics/pkg/logger"
)

const (
	MinTimeout     = 10 * time.Second
	MaxTimeout     = 30 * time.Second
	DefaultTimeout = 15 * time.Second
)

// UpstreamRecorder receives one observation per upstream call.
type UpstreamRecorder interface {
	RecordUpstream(provider, op string, seconds float64, err error)
}

type Options struct {
	Timeout time.Duration
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	Burst         int
	// BreakerFailures consecutive failures open the breaker; 0 disables it.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// ClampTimeout keeps t inside [MinTimeout, MaxTimeout]; zero becomes DefaultTimeout.
func ClampTimeout(t time.Duration) time.Duration {
	switch {
	case t <= 0:
		return DefaultTimeout
	case t < MinTimeout:
		return MinTimeout
	case t > MaxTimeout:
		return MaxTimeout
	}
	return t
}

// Guarded decorates a MarketGateway with a deadline, a rate limiter and a circuit breaker.
// It never retries.
type Guarded struct {
	inner   domrepo.MarketGateway
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	rec     UpstreamRecorder
	l       *applogger.Logger
}

func New(inner domrepo.MarketGateway, opts Options, rec UpstreamRecorder, l *applogger.Logger) *Guarded {
	if l == nil {
		l = applogger.Nop()
	}
	g := &Guarded{inner: inner, timeout: ClampTimeout(opts.Timeout), rec: rec, l: l}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	if opts.BreakerFailures > 0 {
		cooldown := opts.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		failures := opts.BreakerFailures
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     inner.Name(),
			Interval: time.Minute,
			Timeout:  cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("gateway breaker state changed",
					applogger.String("provider", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			},
		})
	}
	return g
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Supports(iv domrepo.Interval) bool { return g.inner.Supports(iv) }

func (g *Guarded) FetchCandles(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	return call(ctx, g, "candles", func(ctx context.Context) ([]models.Candle, error) {
		return g.inner.FetchCandles(ctx, symbol, iv, limit)
	})
}

func (g *Guarded) FetchFlow(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.FlowBucket, error) {
	return call(ctx, g, "flow", func(ctx context.Context) ([]models.FlowBucket, error) {
		return g.inner.FetchFlow(ctx, symbol, iv, limit)
	})
}

// Close closes the wrapped gateway when it holds resources.
func (g *Guarded) Close() error {
	if c, ok := g.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Health pings the inner provider when it holds a connection, and is nil otherwise.
func (g *Guarded) Health(ctx context.Context) error {
	if h, ok := g.inner.(interface{ Health(context.Context) error }); ok {
		return h.Health(ctx)
	}
	return nil
}

func call[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, g.observe(op, start, err)
		}
	}

	if g.breaker == nil {
		v, err := fn(ctx)
		if err != nil {
			return zero, g.observe(op, start, err)
		}
		g.observe(op, start, nil)
		return v, nil
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, g.observe(op, start, err)
	}
	g.observe(op, start, nil)
	return out.(T), nil
}

func (g *Guarded) observe(op string, start time.Time, err error) error {
	if g.rec != nil {
		g.rec.RecordUpstream(g.Name(), op, time.Since(start).Seconds(), err)
	}
	if err == nil {
		return nil
	}
	var gwErr *domrepo.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &domrepo.GatewayError{Provider: g.Name(), Op: op, Err: err}
}

var _ domrepo.MarketGateway = (*Guarded)(nil)
