package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"FlowMetrics/internal/domain/models"
	domrepo "FlowMetrics/internal/domain/repository"
	"FlowMetrics/internal/usecase"
	xhttp "FlowMetrics/pkg/http"
	xlogger "FlowMetrics/pkg/logger"
)

// MetricsEchoHandler serves the analytics operations as JSON envelopes.
type MetricsEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.MetricsUseCase
}

func NewMetricsEchoHandler(logger *xlogger.Logger, uc *usecase.MetricsUseCase) *MetricsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MetricsEchoHandler{logger: logger, uc: uc}
}

func (h *MetricsEchoHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/candles", h.Candles)
	g.GET("/vwap", h.VWAP)
	g.GET("/twap", h.TWAP)
	g.GET("/cvd", h.CVD)
	g.GET("/volume-profile", h.VolumeProfile)
	g.GET("/volatility", h.Volatility)
	g.GET("/bias", h.Bias)
	g.GET("/large-orders", h.LargeOrders)
}

func (h *MetricsEchoHandler) Candles(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.Candles(c.Request().Context(), q)
	return respond(h, c, "candles", res, err)
}

func (h *MetricsEchoHandler) VWAP(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.VWAP(c.Request().Context(), q)
	return respond(h, c, "vwap", res, err)
}

func (h *MetricsEchoHandler) TWAP(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.TWAP(c.Request().Context(), q)
	return respond(h, c, "twap", res, err)
}

func (h *MetricsEchoHandler) CVD(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.CVD(c.Request().Context(), q)
	return respond(h, c, "cvd", res, err)
}

func (h *MetricsEchoHandler) Volatility(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.Volatility(c.Request().Context(), q)
	return respond(h, c, "volatility", res, err)
}

func (h *MetricsEchoHandler) Bias(c echo.Context) error {
	q, ok, err := h.seriesQuery(c)
	if !ok {
		return err
	}
	res, err := h.uc.Bias(c.Request().Context(), q)
	return respond(h, c, "bias", res, err)
}

func (h *MetricsEchoHandler) VolumeProfile(c echo.Context) error {
	req := &models.ProfileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	q := usecase.Query{Symbol: req.Symbol, Exchange: req.Exchange, Interval: domrepo.Interval(req.Interval), Limit: req.Limit}
	p := usecase.ProfileParams{Bins: req.Bins, Detailed: req.Detailed, Mode: req.Mode}
	res, err := h.uc.VolumeProfile(c.Request().Context(), q, p)
	return respond(h, c, "volume-profile", res, err)
}

func (h *MetricsEchoHandler) LargeOrders(c echo.Context) error {
	req := &models.LargeOrdersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	q := usecase.Query{Symbol: req.Symbol, Exchange: req.Exchange, Interval: domrepo.Interval(req.Interval), Limit: req.Limit}
	res, err := h.uc.LargeOrders(c.Request().Context(), q, req.MinNotional)
	return respond(h, c, "large-orders", res, err)
}

// seriesQuery binds the common symbol/interval/limit request. When ok is false the
// validation response has been written and err is its result.
func (h *MetricsEchoHandler) seriesQuery(c echo.Context) (usecase.Query, bool, error) {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return usecase.Query{}, false, xhttp.ValidationErrorResponse(c, verr)
	}
	return usecase.Query{
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Interval: domrepo.Interval(req.Interval),
		Limit:    req.Limit,
	}, true, nil
}

func respond[T any](h *MetricsEchoHandler, c echo.Context, route string, res usecase.Result[T], err error) error {
	if err != nil {
		h.logger.Error("metrics usecase error", xlogger.String("route", route), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	var data interface{} = res.Data
	if res.Meta.Empty() {
		data = []struct{}{}
	}
	return xhttp.SuccessResponse(c, data, res.Meta)
}

func mapError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrInvalidSymbol):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrUpstreamUnavailable):
		return xhttp.UpstreamError("upstream market data unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
