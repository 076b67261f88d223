package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c := NewTTLCache(WithClock(clk.Now))

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 5*time.Second))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	clk.Advance(5 * time.Second)
	_, ok, _ = c.GetBytes(ctx, "k")
	assert.True(t, ok, "entry is valid up to and including its expiry instant")

	clk.Advance(time.Millisecond)
	_, ok, _ = c.GetBytes(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLCacheSweep(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c := NewTTLCache(WithClock(clk.Now))
	_ = c.SetBytes(ctx, "short", []byte("1"), time.Second)
	_ = c.SetBytes(ctx, "long", []byte("2"), time.Minute)
	_ = c.SetBytes(ctx, "forever", []byte("3"), 0)

	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 2, c.Len())
}
