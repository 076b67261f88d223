package repository

import (
	"context"
	"errors"
	"fmt"

	"FlowMetrics/internal/domain/models"
)

// ErrUpstreamUnavailable marks provider timeouts, non-2xx responses and open breakers.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// GatewayError is returned by every MarketGateway failure. It matches ErrUpstreamUnavailable
// with errors.Is and unwraps to the underlying cause.
type GatewayError struct {
	Provider string
	Op       string
	Status   int
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// MarketGateway fetches raw market data from an upstream provider.
// Implementations return real provider data or an error, never placeholder values.
type MarketGateway interface {
	Name() string
	// Supports reports whether the provider serves candles natively at interval.
	Supports(interval Interval) bool
	FetchCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]models.Candle, error)
	FetchFlow(ctx context.Context, symbol string, interval Interval, limit int) ([]models.FlowBucket, error)
}

// SnapshotPublisher streams freshly computed results to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, symbol, op string, payload interface{}) error
	Close() error
}

type Metrics interface {
	RecordCache(op, result string)
	RecordUpstream(provider, op string, seconds float64, err error)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
}
