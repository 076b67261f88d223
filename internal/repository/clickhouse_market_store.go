package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	applogger "FlowMetrics/pkg/logger"
)

// CHMarketStore implements MarketGateway over ClickHouse candle and flow tables.
type CHMarketStore struct {
	db        *sql.DB
	database  string
	intervals map[domrepo.Interval]bool
	l         *applogger.Logger
}

// NewCHMarketStore reads from database. intervals lists the candle resolutions stored natively;
// an empty list means all of them.
func NewCHMarketStore(db *sql.DB, database string, intervals []domrepo.Interval) *CHMarketStore {
	s := &CHMarketStore{db: db, database: database, l: applogger.Nop()}
	if len(intervals) > 0 {
		s.intervals = make(map[domrepo.Interval]bool, len(intervals))
		for _, iv := range intervals {
			s.intervals[iv] = true
		}
	}
	return s
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHMarketStore) Name() string { return "clickhouse" }

func (s *CHMarketStore) Supports(iv domrepo.Interval) bool {
	if s.intervals == nil {
		return domrepo.IsValidInterval(iv)
	}
	return s.intervals[iv]
}

func (s *CHMarketStore) FetchCandles(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s.candles FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(iv), limit)
	if err != nil {
		return nil, s.fail("candles", symbol, iv, "query", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, limit)
	for rows.Next() {
		var (
			ts time.Time
			c  models.Candle
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, s.fail("candles", symbol, iv, "scan", err)
		}
		c.Timestamp = ts.UnixMilli()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("candles", symbol, iv, "rows", err)
	}
	reverse(out)
	s.l.Debug("clickhouse candles ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHMarketStore) FetchFlow(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.FlowBucket, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, buy_volume_quote, sell_volume_quote, trades_count, price
        FROM %s.flow_buckets FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(iv), limit)
	if err != nil {
		return nil, s.fail("flow", symbol, iv, "query", err)
	}
	defer rows.Close()

	out := make([]models.FlowBucket, 0, limit)
	for rows.Next() {
		var (
			ts time.Time
			b  models.FlowBucket
		)
		if err := rows.Scan(&ts, &b.BuyVolume, &b.SellVolume, &b.TradesCount, &b.Price); err != nil {
			return nil, s.fail("flow", symbol, iv, "scan", err)
		}
		b.Timestamp = ts.UnixMilli()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("flow", symbol, iv, "rows", err)
	}
	reverse(out)
	s.l.Debug("clickhouse flow ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHMarketStore) fail(op, symbol string, iv domrepo.Interval, stage string, err error) error {
	s.l.Error("clickhouse "+op+" "+stage+" error",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Error(err),
	)
	return &domrepo.GatewayError{Provider: s.Name(), Op: op, Err: fmt.Errorf("%s: %w", stage, err)}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

var _ domrepo.MarketGateway = (*CHMarketStore)(nil)
