//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FlowMetrics/internal/usecase"
	"FlowMetrics/pkg/config"
	"FlowMetrics/pkg/server"
)

var coreSet = wire.NewSet(
	// Observability
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideEndpointMetrics,

	// Infrastructure
	ProvideCacheBackend,
	ProvideCompute,
	ProvideGateway,
	ProvidePublisher,

	// Use cases
	ProvideMetricsUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		coreSet,

		// Transport
		ProvideHandler,
		ProvideLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeMetricsUseCase wires the analytics use case alone, for one-shot CLI queries.
func InitializeMetricsUseCase(cfg *config.Config) (*usecase.MetricsUseCase, error) {
	wire.Build(coreSet)
	return &usecase.MetricsUseCase{}, nil
}
