package models

// Requests for metrics HTTP endpoints. Limits are clamped by the use case, not rejected.

type SeriesRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Interval string `query:"interval" json:"interval" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 8h 1d"`
	Exchange string `query:"exchange" json:"exchange" default:"binance" validate:"max=32"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=0"`
}

type ProfileRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Interval string `query:"interval" json:"interval" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 8h 1d"`
	Exchange string `query:"exchange" json:"exchange" default:"binance" validate:"max=32"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=0"`
	Bins     int    `query:"bins" json:"bins" default:"20" validate:"gte=1,lte=200"`
	Detailed bool   `query:"detailed" json:"detailed"`
	Mode     string `query:"mode" json:"mode" default:"aggregate" validate:"oneof=aggregate candles"`
}

type LargeOrdersRequest struct {
	Symbol      string  `query:"symbol" json:"symbol" validate:"required,max=32"`
	Interval    string  `query:"interval" json:"interval" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 8h 1d"`
	Exchange    string  `query:"exchange" json:"exchange" default:"binance" validate:"max=32"`
	Limit       int     `query:"limit" json:"limit" default:"100" validate:"gte=0"`
	MinNotional float64 `query:"min_notional" json:"min_notional" default:"100000" validate:"gte=0"`
}
