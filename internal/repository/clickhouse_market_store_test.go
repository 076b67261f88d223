package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "FlowMetrics/internal/domain/repository"
)

func TestCHMarketStoreFetchCandles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	t0 := t1.Add(-5 * time.Minute)
	rows := sqlmock.NewRows([]string{"ts", "open", "high", "low", "close", "volume"}).
		AddRow(t1, 101.0, 103.0, 100.0, 102.0, 7.0).
		AddRow(t0, 100.0, 101.0, 99.0, 101.0, 5.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM market.candles FINAL")).
		WithArgs("BTCUSDT", "5m", 2).
		WillReturnRows(rows)

	s := NewCHMarketStore(db, "market", nil)
	got, err := s.FetchCandles(context.Background(), "BTCUSDT", domrepo.Interval5m, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, t0.UnixMilli(), got[0].Timestamp)
	assert.Equal(t, 102.0, got[1].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHMarketStoreFetchFlow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM market.flow_buckets FINAL")).
		WithArgs("ETHUSDT", "1m", 10).
		WillReturnRows(sqlmock.NewRows([]string{"ts", "buy", "sell", "trades", "price"}).
			AddRow(ts, 60.0, 40.0, int64(12), 2500.0))

	s := NewCHMarketStore(db, "market", nil)
	got, err := s.FetchFlow(context.Background(), "ETHUSDT", domrepo.Interval1m, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].TradesCount)
	assert.Equal(t, 20.0, got[0].NetFlow())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHMarketStoreQueryErrorIsUpstream(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	s := NewCHMarketStore(db, "market", nil)
	_, err = s.FetchCandles(context.Background(), "BTCUSDT", domrepo.Interval1h, 5)
	assert.ErrorIs(t, err, domrepo.ErrUpstreamUnavailable)
	var gwErr *domrepo.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "clickhouse", gwErr.Provider)
}

func TestCHMarketStoreSupports(t *testing.T) {
	s := NewCHMarketStore(nil, "market", []domrepo.Interval{domrepo.Interval1d})
	assert.True(t, s.Supports(domrepo.Interval1d))
	assert.False(t, s.Supports(domrepo.Interval5m))
	assert.True(t, NewCHMarketStore(nil, "market", nil).Supports(domrepo.Interval5m))
}
