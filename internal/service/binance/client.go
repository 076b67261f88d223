package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	xhttp "FlowMetrics/pkg/http"
	applogger "FlowMetrics/pkg/logger"
)

const maxKlines = 1000

// Config holds Binance REST settings. Keys are optional for public market data.
type Config struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Client is a MarketGateway backed by Binance spot klines.
// Flow buckets are derived from taker buy quote volume of each kline.
type Client struct {
	api *gobinance.Client
	l   *applogger.Logger
}

func NewClient(cfg Config, l *applogger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	api := gobinance.NewClient(cfg.APIKey, cfg.SecretKey)
	api.HTTPClient = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)).HTTPClient()
	if cfg.BaseURL != "" {
		api.BaseURL = cfg.BaseURL
	}
	return &Client{api: api, l: l}
}

func (c *Client) Name() string { return "binance" }

// Supports reports true for every interval; Binance serves all of them natively.
func (c *Client) Supports(iv domrepo.Interval) bool { return domrepo.IsValidInterval(iv) }

func (c *Client) FetchCandles(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	klines, err := c.klines(ctx, "candles", symbol, iv, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		var p fieldParser
		candle := models.Candle{
			Timestamp: k.OpenTime,
			Open:      p.float("open", k.Open),
			High:      p.float("high", k.High),
			Low:       p.float("low", k.Low),
			Close:     p.float("close", k.Close),
			Volume:    p.float("volume", k.Volume),
		}
		if p.err != nil {
			return nil, c.malformed("candles", symbol, k.OpenTime, p.err)
		}
		out = append(out, candle)
	}
	return out, nil
}

func (c *Client) FetchFlow(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.FlowBucket, error) {
	klines, err := c.klines(ctx, "flow", symbol, iv, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.FlowBucket, 0, len(klines))
	for _, k := range klines {
		var p fieldParser
		quote := p.float("quote_volume", k.QuoteAssetVolume)
		buy := p.float("taker_buy_quote_volume", k.TakerBuyQuoteAssetVolume)
		price := p.float("close", k.Close)
		if p.err != nil {
			return nil, c.malformed("flow", symbol, k.OpenTime, p.err)
		}
		sell := quote - buy
		if sell < 0 {
			sell = 0
		}
		out = append(out, models.FlowBucket{
			Timestamp:   k.OpenTime,
			BuyVolume:   buy,
			SellVolume:  sell,
			TradesCount: k.TradeNum,
			Price:       price,
		})
	}
	return out, nil
}

func (c *Client) klines(ctx context.Context, op, symbol string, iv domrepo.Interval, limit int) ([]*gobinance.Kline, error) {
	if limit <= 0 || limit > maxKlines {
		limit = maxKlines
	}
	klines, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(iv)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		c.l.Warn("binance klines failed",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Error(err),
		)
		gwErr := &domrepo.GatewayError{Provider: c.Name(), Op: op, Err: err}
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			gwErr.Err = fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Message)
		}
		return nil, gwErr
	}
	return klines, nil
}

func (c *Client) malformed(op, symbol string, openTime int64, err error) error {
	c.l.Warn("binance kline malformed",
		applogger.String("symbol", symbol),
		applogger.Int64("open_time", openTime),
		applogger.Error(err),
	)
	return &domrepo.GatewayError{Provider: c.Name(), Op: op, Err: fmt.Errorf("kline %d: %w", openTime, err)}
}

// fieldParser keeps the first numeric field that fails to parse.
type fieldParser struct{ err error }

func (p *fieldParser) float(name, s string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("field %s %q: %w", name, s, err)
		return 0
	}
	return v
}

var _ domrepo.MarketGateway = (*Client)(nil)
