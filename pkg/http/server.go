package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FlowMetrics/pkg/http/middleware"
	applogger "FlowMetrics/pkg/logger"
)

// APIPrefix is the group every Handler is mounted on.
const APIPrefix = "/api/v1"

// readyTimeout bounds each readiness check.
const readyTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SlowThreshold   time.Duration
	CORS            bool
	Logger          *applogger.Logger
	Recorder        middleware.HTTPRecorder
	Gatherer        prometheus.Gatherer
	APIMiddleware   []echo.MiddlewareFunc
	Checks          []namedCheck
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

// NewServer creates a new HTTP server with Echo.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    35 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SlowThreshold:   2 * time.Second,
		CORS:            true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogging(cfg.Logger, cfg.SlowThreshold))
	e.Use(middleware.Metrics(cfg.Recorder))
	e.Use(middleware.Recover(cfg.Logger))
	if cfg.CORS {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		}))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
	})
	e.GET("/readyz", readiness(cfg.Checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	if handler != nil {
		handler.RegisterRoutes(e.Group(APIPrefix, cfg.APIMiddleware...))
	}

	return &Server{echo: e, config: cfg}
}

// readiness runs every check and answers 503 with the failing names when any fails.
func readiness(checks []namedCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		failed := map[string]string{}
		for _, nc := range checks {
			ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
			err := nc.check(ctx)
			cancel()
			if err != nil {
				failed[nc.name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"success": false, "status": "unavailable", "failed": failed})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "status": "ready"})
	}
}

// errorHandler renders echo errors (unknown route, bad method, bind failures) as failure envelopes.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := CodeInternal
		switch {
		case he.Code == http.StatusNotFound:
			code = CodeNotFound
		case he.Code == http.StatusTooManyRequests:
			code = CodeRateLimited
		case he.Code < 500:
			code = CodeBadRequest
		}
		_ = ErrorResponse(c, he.Code, code, fmt.Sprintf("%v", he.Message))
		return
	}
	_ = AppErrorResponse(c, err)
}

// Start starts the HTTP server in the background. Listen failures are sent on the returned channel.
func (s *Server) Start() <-chan error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.config.Logger.Info("http server stopped")
	return nil
}

// ShutdownTimeout returns the configured graceful shutdown budget.
func (s *Server) ShutdownTimeout() time.Duration { return s.config.ShutdownTimeout }

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) { c.Host = host }
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

// WithTimeouts sets read/write timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS enables/disables CORS.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// WithMetrics sets the request recorder and the gatherer served on /metrics.
func WithMetrics(rec middleware.HTTPRecorder, g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.Recorder = rec
		c.Gatherer = g
	}
}

// WithReadinessCheck adds a named check to /readyz. Nil checks are ignored.
func WithReadinessCheck(name string, check ReadinessCheck) ServerOption {
	return func(c *ServerConfig) {
		if check != nil {
			c.Checks = append(c.Checks, namedCheck{name: name, check: check})
		}
	}
}

// WithAPIMiddleware adds middleware applied only to the API group.
func WithAPIMiddleware(mw ...echo.MiddlewareFunc) ServerOption {
	return func(c *ServerConfig) { c.APIMiddleware = append(c.APIMiddleware, mw...) }
}
