package usecase

import (
	"errors"
	"strings"
	"time"

	domrepo "FlowMetrics/internal/domain/repository"
)

const (
	DataTypeReal = "real_provider_data"
	DataTypeNone = "no_data_available"

	DefaultLimit = 100
	MinLimit     = 20
	MaxLimit     = 1000

	NoteInterpolated        = "interpolated_from=1d"
	NoteIntervalUnsupported = "interval_not_supported_by_provider"
	NoteFlowUnavailable     = "buy_sell_split_unavailable"
	NoteInsufficientData    = "insufficient_candles"
	NoteNoPrice             = "current_price_unavailable"
)

var ErrInvalidSymbol = errors.New("symbol is required")

// Query identifies one analytics request.
type Query struct {
	Symbol   string
	Exchange string
	Interval domrepo.Interval
	Limit    int
}

// ClampLimit maps a requested limit into [MinLimit, MaxLimit]; zero or less becomes DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit < MinLimit:
		return MinLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Normalize uppercases the symbol, clamps the limit and defaults exchange and interval.
func (q Query) Normalize() (Query, error) {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		return q, ErrInvalidSymbol
	}
	q.Exchange = strings.ToLower(strings.TrimSpace(q.Exchange))
	if q.Exchange == "" {
		q.Exchange = "binance"
	}
	if !domrepo.IsValidInterval(q.Interval) {
		q.Interval = domrepo.DefaultInterval()
	}
	q.Limit = ClampLimit(q.Limit)
	return q, nil
}

// Meta describes where a result came from.
type Meta struct {
	Symbol      string    `json:"symbol"`
	Interval    string    `json:"interval"`
	Limit       int       `json:"limit"`
	Source      string    `json:"source"`
	DataType    string    `json:"data_type"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
	Note        string    `json:"note,omitempty"`
}

// Empty reports whether the result carries no provider data.
func (m Meta) Empty() bool { return m.DataType == DataTypeNone }

// Result is a computed value with its metadata. Data is the zero value when Meta.Empty().
type Result[T any] struct {
	Data T    `json:"data"`
	Meta Meta `json:"meta"`
}

func found[T any](data T, count int, note string) Result[T] {
	if count == 0 {
		return Result[T]{Data: data, Meta: Meta{DataType: DataTypeNone, Note: note}}
	}
	return Result[T]{Data: data, Meta: Meta{DataType: DataTypeReal, Count: count, Note: note}}
}

func notFound[T any](note string) Result[T] {
	var zero T
	return Result[T]{Data: zero, Meta: Meta{DataType: DataTypeNone, Note: note}}
}

func joinNotes(notes ...string) string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		if n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ";")
}
