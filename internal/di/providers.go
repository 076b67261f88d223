package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FlowMetrics/internal/domain/repository"
	"FlowMetrics/internal/handler/api"
	internalrepo "FlowMetrics/internal/repository"
	"FlowMetrics/internal/service/binance"
	"FlowMetrics/internal/service/cache"
	"FlowMetrics/internal/service/gateway"
	imetrics "FlowMetrics/internal/service/metrics"
	"FlowMetrics/internal/service/provider"
	"FlowMetrics/internal/service/ratelimit"
	"FlowMetrics/internal/usecase"
	pkgch "FlowMetrics/pkg/clickhouse"
	"FlowMetrics/pkg/config"
	xhttp "FlowMetrics/pkg/http"
	pkgkafka "FlowMetrics/pkg/kafka"
	applogger "FlowMetrics/pkg/logger"
	"FlowMetrics/pkg/metrics"
	"FlowMetrics/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideEndpointMetrics creates the per-operation latency collectors.
func ProvideEndpointMetrics(reg *prometheus.Registry) *imetrics.Endpoint {
	return imetrics.NewEndpoint(reg)
}

// ProvideCacheBackend selects the in-memory or Redis byte cache.
func ProvideCacheBackend(cfg *config.Config) (cache.BytesCache, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewTTLCache(), nil
	}
	r := cache.NewRedisCache(cache.RedisConfig{
		Addr:      cfg.Cache.Redis.Addr,
		Password:  cfg.Cache.Redis.Password,
		DB:        cfg.Cache.Redis.DB,
		KeyPrefix: cfg.Cache.Redis.KeyPrefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return r, nil
}

// ProvideCompute creates the single-flight compute cache.
func ProvideCompute(backend cache.BytesCache, rec *metrics.Recorder, l *applogger.Logger) *cache.Compute {
	return cache.NewCompute(backend, cache.WithRecorder(rec), cache.WithLogger(l))
}

// chGateway attaches the ClickHouse pool to the market store so the guard can ping and close it.
type chGateway struct {
	repository.MarketGateway
	*pkgch.Client
}

// ProvideGateway builds the configured market data provider behind the guard.
func ProvideGateway(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) (*gateway.Guarded, error) {
	var inner repository.MarketGateway
	switch cfg.Provider.Type {
	case "rest":
		inner = provider.NewClient(provider.Config{
			BaseURL:   cfg.Provider.BaseURL,
			APIKey:    cfg.Provider.APIKey,
			APIHeader: cfg.Provider.APIHeader,
			Intervals: repository.ParseIntervals(cfg.Provider.Intervals),
			Timeout:   gateway.ClampTimeout(cfg.Provider.Timeout),
		}, l)
	case "clickhouse":
		ch, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		store := internalrepo.NewCHMarketStore(ch.DB(), cfg.ClickHouse.Database, repository.ParseIntervals(cfg.Provider.Intervals))
		store.SetLogger(l)
		inner = chGateway{MarketGateway: store, Client: ch}
	default:
		inner = binance.NewClient(binance.Config{
			APIKey:    cfg.Provider.APIKey,
			SecretKey: cfg.Provider.SecretKey,
			BaseURL:   cfg.Provider.BaseURL,
			Timeout:   gateway.ClampTimeout(cfg.Provider.Timeout),
		}, l)
	}
	return gateway.New(inner, gateway.Options{
		Timeout:         cfg.Provider.Timeout,
		RatePerSecond:   cfg.Provider.RatePerSecond,
		Burst:           cfg.Provider.Burst,
		BreakerFailures: cfg.Provider.Breaker.Failures,
		BreakerCooldown: cfg.Provider.Breaker.Cooldown,
	}, rec, l), nil
}

// ProvideClickHouseClient creates a ClickHouse client and its market tables.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP, cfg.ClickHouse.Compress),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if cfg.ClickHouse.SkipSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.MarketSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePublisher streams snapshots to Kafka when enabled.
func ProvidePublisher(cfg *config.Config, reg *prometheus.Registry) (repository.SnapshotPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideMetricsUseCase wires the analytics use case.
func ProvideMetricsUseCase(
	cfg *config.Config,
	gw *gateway.Guarded,
	compute *cache.Compute,
	pub repository.SnapshotPublisher,
	endpoint *imetrics.Endpoint,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.MetricsUseCase {
	return usecase.NewMetricsUseCase(gw, compute,
		usecase.WithTTLs(usecase.TTLs{
			Flow:       cfg.Cache.TTL.Flow,
			Candles:    cfg.Cache.TTL.Candles,
			Volatility: cfg.Cache.TTL.Volatility,
			Price:      cfg.Cache.TTL.Price,
		}),
		usecase.WithPublisher(pub),
		usecase.WithObserver(endpoint),
		usecase.WithRecorder(rec),
		usecase.WithLogger(l),
	)
}

// ProvideHandler creates the REST handler.
func ProvideHandler(l *applogger.Logger, uc *usecase.MetricsUseCase) *api.MetricsEchoHandler {
	return api.NewMetricsEchoHandler(l, uc)
}

// ProvideLimiter creates the per-client request limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
}

// ProvideHTTPServer creates the Echo server with middleware and routes.
func ProvideHTTPServer(
	cfg *config.Config,
	h *api.MetricsEchoHandler,
	limiter *ratelimit.Limiter,
	gw *gateway.Guarded,
	backend cache.BytesCache,
	rec *metrics.Recorder,
	reg *prometheus.Registry,
	l *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithLogger(l),
		xhttp.WithMetrics(rec, reg),
		xhttp.WithReadinessCheck("gateway", gw.Health),
	}
	if p, ok := backend.(interface{ Ping(context.Context) error }); ok {
		opts = append(opts, xhttp.WithReadinessCheck("cache", p.Ping))
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, xhttp.WithAPIMiddleware(limiter.Middleware()))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application with its background tasks and closers.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	l *applogger.Logger,
	backend cache.BytesCache,
	gw *gateway.Guarded,
	pub repository.SnapshotPublisher,
	limiter *ratelimit.Limiter,
) *server.App {
	opts := []server.Option{
		server.WithCloser("gateway", gw),
		server.WithCloser("publisher", pub),
	}
	if ttl, ok := backend.(*cache.TTLCache); ok {
		opts = append(opts, server.WithTask(func(ctx context.Context) {
			ttl.StartJanitor(ctx, cfg.Cache.SweepInterval)
		}))
	}
	if c, ok := backend.(io.Closer); ok {
		opts = append(opts, server.WithCloser("cache", c))
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, server.WithTask(func(ctx context.Context) {
			pruneLoop(ctx, limiter, cfg.RateLimit.IdleTTL)
		}))
	}
	return server.New(srv, l, opts...)
}

func pruneLoop(ctx context.Context, limiter *ratelimit.Limiter, idle time.Duration) {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(idle)
		}
	}
}
