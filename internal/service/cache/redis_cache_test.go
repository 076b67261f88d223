package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "fm:")

	mock.ExpectGet("fm:missing").RedisNil()
	mock.ExpectSet("fm:k", []byte("v"), 10*time.Second).SetVal("OK")
	mock.ExpectGet("fm:k").SetVal("v")
	mock.ExpectGet("fm:broken").SetErr(errors.New("conn reset"))

	_, ok, err := c.GetBytes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 10*time.Second))

	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	_, ok, err = c.GetBytes(ctx, "broken")
	assert.Error(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComputeOverRedisBackendErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewCompute(NewRedisCacheWithClient(db, ""))

	mock.ExpectGet("k").SetErr(errors.New("down"))
	mock.ExpectGet("k").SetErr(errors.New("down"))
	mock.ExpectSet("k", []byte("5"), time.Minute).SetErr(errors.New("down"))

	v, out, err := GetOrCompute(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.True(t, out.Fresh)
	assert.Equal(t, 5, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}
