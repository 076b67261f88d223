package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"FlowMetrics/internal/di"
	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	"FlowMetrics/internal/usecase"
	"FlowMetrics/pkg/config"
	xhttp "FlowMetrics/pkg/http"
)

var operations = []string{"candles", "vwap", "twap", "cvd", "volume-profile", "volatility", "bias", "large-orders"}

type queryFlags struct {
	symbol      string
	exchange    string
	interval    string
	limit       int
	bins        int
	detailed    bool
	mode        string
	minNotional float64
	output      string
	timeout     time.Duration
}

func newQueryCmd(configPath *string) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:       "query <operation>",
		Short:     "Compute one analytics result and print it",
		Long:      "Operations: " + strings.Join(operations, ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: operations,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.output != "table" && f.output != "json" {
				return fmt.Errorf("unknown output %q", f.output)
			}
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			uc, err := di.InitializeMetricsUseCase(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()
			data, meta, err := runQuery(ctx, uc, args[0], f)
			if err != nil {
				return err
			}
			if f.output == "json" {
				return writeJSON(cmd.OutOrStdout(), data, meta)
			}
			renderTable(cmd.OutOrStdout(), data, meta)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.symbol, "symbol", "s", "", "symbol, e.g. BTCUSDT")
	fl.StringVar(&f.exchange, "exchange", "binance", "exchange label")
	fl.StringVarP(&f.interval, "interval", "i", "5m", "1m, 5m, 15m, 1h, 4h, 8h or 1d")
	fl.IntVarP(&f.limit, "limit", "n", usecase.DefaultLimit, "number of buckets (clamped to 20..1000)")
	fl.IntVar(&f.bins, "bins", 20, "volume profile bins")
	fl.BoolVar(&f.detailed, "detailed", false, "detailed volume profile")
	fl.StringVar(&f.mode, "mode", usecase.ProfileModeAggregate, "volume profile mode: aggregate or candles")
	fl.Float64Var(&f.minNotional, "min-notional", 100000, "large order threshold in quote currency")
	fl.StringVarP(&f.output, "output", "o", "table", "table or json")
	fl.DurationVar(&f.timeout, "timeout", 30*time.Second, "overall query timeout")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func runQuery(ctx context.Context, uc *usecase.MetricsUseCase, op string, f *queryFlags) (interface{}, usecase.Meta, error) {
	iv := domrepo.Interval(strings.ToLower(f.interval))
	if !domrepo.IsValidInterval(iv) {
		return nil, usecase.Meta{}, fmt.Errorf("unknown interval %q", f.interval)
	}
	q := usecase.Query{Symbol: f.symbol, Exchange: f.exchange, Interval: iv, Limit: f.limit}

	switch op {
	case "candles":
		return unpack(uc.Candles(ctx, q))
	case "vwap":
		return unpack(uc.VWAP(ctx, q))
	case "twap":
		return unpack(uc.TWAP(ctx, q))
	case "cvd":
		return unpack(uc.CVD(ctx, q))
	case "volume-profile":
		return unpack(uc.VolumeProfile(ctx, q, usecase.ProfileParams{Bins: f.bins, Detailed: f.detailed, Mode: f.mode}))
	case "volatility":
		return unpack(uc.Volatility(ctx, q))
	case "bias":
		return unpack(uc.Bias(ctx, q))
	case "large-orders":
		return unpack(uc.LargeOrders(ctx, q, f.minNotional))
	}
	return nil, usecase.Meta{}, fmt.Errorf("unknown operation %q", op)
}

func unpack[T any](res usecase.Result[T], err error) (interface{}, usecase.Meta, error) {
	if err != nil {
		return nil, usecase.Meta{}, err
	}
	if res.Meta.Empty() {
		return []struct{}{}, res.Meta, nil
	}
	return res.Data, res.Meta, nil
}

func writeJSON(w io.Writer, data interface{}, meta usecase.Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(xhttp.Envelope{Success: true, Data: data, Meta: meta})
}

func renderTable(w io.Writer, data interface{}, meta usecase.Meta) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s %s (%s)", meta.Symbol, meta.Interval, meta.Source))
	caption := "data_type=" + meta.DataType
	if meta.Note != "" {
		caption += " note=" + meta.Note
	}
	t.SetCaption(caption)

	switch v := data.(type) {
	case []models.Candle:
		t.AppendHeader(table.Row{"Time", "Open", "High", "Low", "Close", "Volume"})
		for _, c := range v {
			t.AppendRow(table.Row{ts(c.Timestamp), c.Open, c.High, c.Low, c.Close, c.Volume})
		}
	case []models.VWAPPoint:
		t.AppendHeader(table.Row{"Time", "Price", "Mean", "Upper", "Lower", "Signal", "Strength"})
		for _, p := range v {
			t.AppendRow(table.Row{ts(p.Timestamp), p.Price, round(p.VWAP), round(p.UpperBand), round(p.LowerBand), p.Signal, round(p.Strength)})
		}
	case []models.CVDPoint:
		t.AppendHeader(table.Row{"Time", "Buy", "Sell", "Net", "CVD"})
		for _, p := range v {
			t.AppendRow(table.Row{ts(p.Timestamp), p.BuyVolume, p.SellVolume, p.NetVolume, p.CVD})
		}
	case *models.VolumeProfile:
		t.AppendHeader(table.Row{"Price", "Volume", "Buy", "Sell", "%"})
		for _, b := range v.Bins {
			t.AppendRow(table.Row{round(b.PriceLevel), round(b.Volume), round(b.BuyVolume), round(b.SellVolume), round(b.VolumePercentage)})
		}
		t.AppendFooter(table.Row{"POC " + fmt.Sprint(round(v.POC)), "VAH " + fmt.Sprint(round(v.VAH)), "VAL " + fmt.Sprint(round(v.VAL)), "", ""})
	case *models.VolatilityReport:
		c := v.Classification
		t.AppendHeader(table.Row{"Metric", "Value"})
		t.AppendRows([]table.Row{
			{"score", c.Score},
			{"regime", c.Regime},
			{"confidence", c.Confidence},
			{"hv percentile", round(v.Inputs.HVPercentile)},
			{"rv percentile", round(v.Inputs.RVPercentile)},
			{"atr percentile", round(v.Inputs.ATRPercentile)},
		})
		for _, tr := range v.Transitions {
			t.AppendRow(table.Row{tr.TimeframeLabel + " -> " + string(tr.TargetRegime), tr.Probability})
		}
	case *models.BiasResult:
		t.AppendHeader(table.Row{"Metric", "Value"})
		t.AppendRows([]table.Row{
			{"bias", v.Bias},
			{"buyer ratio", round(v.BuyerRatio)},
			{"strength", round(v.Strength)},
			{"net flow", v.NetFlow},
			{"high events", v.HighEvents},
			{"extreme events", v.ExtremeEvents},
		})
	case []models.FlowEvent:
		t.AppendHeader(table.Row{"Time", "Side", "Price", "Buy", "Sell", "Total"})
		for _, e := range v {
			t.AppendRow(table.Row{ts(e.Timestamp), e.Side, e.Price, e.BuyVolume, e.SellVolume, e.TotalVolume})
		}
	default:
		t.AppendRow(table.Row{text.FgHiBlack.Sprint("no data available")})
	}
	t.Render()
}

func ts(ms int64) string { return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04") }

func round(v float64) string { return fmt.Sprintf("%.4f", v) }
