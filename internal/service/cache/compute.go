package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"FlowMetrics/pkg/logger"
)

// Recorder receives cache hit/miss/error outcomes per operation.
type Recorder interface {
	RecordCache(op, result string)
}

const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Compute serves computed values from a BytesCache. Concurrent misses on one key
// share a single computation; failed computations are never stored.
type Compute struct {
	backend  BytesCache
	group    singleflight.Group
	recorder Recorder
	logger   *logger.Logger
}

type ComputeOption func(*Compute)

func WithRecorder(r Recorder) ComputeOption {
	return func(c *Compute) { c.recorder = r }
}

func WithLogger(l *logger.Logger) ComputeOption {
	return func(c *Compute) { c.logger = l }
}

func NewCompute(backend BytesCache, opts ...ComputeOption) *Compute {
	if backend == nil {
		backend = NewTTLCache()
	}
	c := &Compute{backend: backend}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compute) record(key, result string) {
	if c.recorder == nil {
		return
	}
	op := key
	if i := strings.IndexByte(key, '_'); i > 0 {
		op = key[:i]
	}
	c.recorder.RecordCache(op, result)
}

// load decodes a cached value. A corrupt entry is treated as a miss.
func (c *Compute) load(ctx context.Context, key string, out interface{}) bool {
	b, ok, err := c.backend.GetBytes(ctx, key)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		if c.logger != nil {
			c.logger.Warn("cache decode failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	return true
}

func (c *Compute) store(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.backend.SetBytes(ctx, key, b, ttl)
}

// Outcome tells whether a GetOrCompute value came from the cache.
type Outcome struct {
	Fresh bool
}

// GetOrCompute returns the cached value for key, or runs fn once across concurrent callers,
// stores its result for ttl and returns it. Errors from fn propagate and are not cached.
func GetOrCompute[T any](ctx context.Context, c *Compute, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, Outcome, error) {
	var out T
	if c.load(ctx, key, &out) {
		c.record(key, ResultHit)
		return out, Outcome{}, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		var cached T
		if c.load(ctx, key, &cached) {
			return flight[T]{v: cached}, nil
		}
		res, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if serr := c.store(context.WithoutCancel(ctx), key, res, ttl); serr != nil && c.logger != nil {
			c.logger.Warn("cache write failed", logger.String("key", key), logger.Error(serr))
		}
		return flight[T]{v: res, fresh: true}, nil
	})
	if err != nil {
		c.record(key, ResultError)
		return out, Outcome{}, err
	}
	f := v.(flight[T])
	if f.fresh {
		c.record(key, ResultMiss)
	} else {
		c.record(key, ResultHit)
	}
	return f.v, Outcome{Fresh: f.fresh}, nil
}

type flight[T any] struct {
	v     T
	fresh bool
}

// Remember stores an explicit value, such as a last known price.
func (c *Compute) Remember(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	return c.store(ctx, key, v, ttl)
}

// Recall loads a value stored with Remember or GetOrCompute.
func (c *Compute) Recall(ctx context.Context, key string, out interface{}) bool {
	return c.load(ctx, key, out)
}
