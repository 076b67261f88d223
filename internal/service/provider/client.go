package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	"FlowMetrics/internal/services/normalize"
	xhttp "FlowMetrics/pkg/http"
	applogger "FlowMetrics/pkg/logger"
	"FlowMetrics/pkg/util"
)

// Config describes a generic JSON market-data provider.
//
// Responses look like {"code":"0","msg":"success","data":[...]}; a missing code is treated as success.
type Config struct {
	Name      string
	BaseURL   string
	APIKey    string
	APIHeader string
	// Intervals lists the candle resolutions served natively. Empty means all.
	Intervals []domrepo.Interval
	Timeout   time.Duration
}

// Client is a MarketGateway over a REST provider.
type Client struct {
	cfg       Config
	http      *xhttp.Client
	intervals map[domrepo.Interval]bool
	l         *applogger.Logger
}

func NewClient(cfg Config, l *applogger.Logger, opts ...xhttp.ClientOption) *Client {
	if cfg.Name == "" {
		cfg.Name = "rest"
	}
	if cfg.APIHeader == "" {
		cfg.APIHeader = "X-API-KEY"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:  cfg,
		http: xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)...),
		l:    l,
	}
	if len(cfg.Intervals) > 0 {
		c.intervals = make(map[domrepo.Interval]bool, len(cfg.Intervals))
		for _, iv := range cfg.Intervals {
			c.intervals[iv] = true
		}
	}
	return c
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Supports(iv domrepo.Interval) bool {
	if c.intervals == nil {
		return domrepo.IsValidInterval(iv)
	}
	return c.intervals[iv]
}

func (c *Client) FetchCandles(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	data, err := c.get(ctx, "candles", symbol, iv, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Candle, 0, len(data))
	for _, item := range data {
		ts := optTime(item.Get("time"))
		if ts == nil {
			continue
		}
		out = append(out, models.Candle{
			Timestamp: *ts,
			Open:      item.Get("open").Float(),
			High:      item.Get("high").Float(),
			Low:       item.Get("low").Float(),
			Close:     item.Get("close").Float(),
			Volume:    item.Get("volume").Float(),
		})
	}
	return normalize.Canonicalize(out), nil
}

// FetchFlow returns resolved flow buckets. Records with a missing price inherit the previous one;
// leading records without any price are kept at zero for the caller to backfill.
func (c *Client) FetchFlow(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.FlowBucket, error) {
	data, err := c.get(ctx, "flow", symbol, iv, limit)
	if err != nil {
		return nil, err
	}
	raw := make([]models.RawFlowBucket, 0, len(data))
	for _, item := range data {
		raw = append(raw, models.RawFlowBucket{
			Timestamp:   optTime(item.Get("time")),
			BuyVolume:   optFloat(item.Get("buy_volume_usd")),
			SellVolume:  optFloat(item.Get("sell_volume_usd")),
			TradesCount: optInt(item.Get("trades")),
			Price:       optFloat(item.Get("price")),
		})
	}
	return normalize.ResolveFlow(raw, 0), nil
}

func (c *Client) get(ctx context.Context, op, symbol string, iv domrepo.Interval, limit int) ([]gjson.Result, error) {
	start := time.Now()
	req := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.BaseURL + "/" + op,
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(iv)},
			"limit":    {strconv.Itoa(limit)},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}
	if c.cfg.APIKey != "" {
		req.Headers[c.cfg.APIHeader] = c.cfg.APIKey
	}

	var body []byte
	if err := c.http.SendAndParse(ctx, req, &body); err != nil {
		gwErr := &domrepo.GatewayError{Provider: c.Name(), Op: op, Err: err}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			gwErr.Status = se.StatusCode
		}
		return nil, c.fail(gwErr, symbol, start)
	}
	if !gjson.ValidBytes(body) {
		return nil, c.fail(&domrepo.GatewayError{Provider: c.Name(), Op: op, Err: errors.New("invalid json payload")}, symbol, start)
	}
	doc := gjson.ParseBytes(body)
	if code := doc.Get("code"); code.Exists() && code.String() != "0" {
		err := fmt.Errorf("provider code %s: %s", code.String(), doc.Get("msg").String())
		return nil, c.fail(&domrepo.GatewayError{Provider: c.Name(), Op: op, Err: err}, symbol, start)
	}
	data := doc.Get("data")
	if !data.IsArray() {
		return nil, nil
	}
	c.l.Debug("provider fetch",
		applogger.String("op", op),
		applogger.String("symbol", symbol),
		applogger.Int("records", len(data.Array())),
		applogger.Duration("took", time.Since(start)),
	)
	return data.Array(), nil
}

func (c *Client) fail(err *domrepo.GatewayError, symbol string, start time.Time) error {
	c.l.Warn("provider fetch failed",
		applogger.String("op", err.Op),
		applogger.String("symbol", symbol),
		applogger.Duration("took", time.Since(start)),
		applogger.Error(err),
	)
	return err
}

func optFloat(r gjson.Result) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := r.Float()
	return &v
}

func optInt(r gjson.Result) *int64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := r.Int()
	return &v
}

// optTime reads epoch seconds, epoch milliseconds or an RFC3339 string as milliseconds.
func optTime(r gjson.Result) *int64 {
	var (
		v  int64
		ok bool
	)
	switch r.Type {
	case gjson.Number:
		v, ok = util.EpochMillis(r.Int()), true
	case gjson.String:
		v, ok = util.ParseMillis(r.Str)
	}
	if !ok {
		return nil
	}
	return &v
}

var _ domrepo.MarketGateway = (*Client)(nil)
