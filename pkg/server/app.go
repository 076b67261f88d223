package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	xhttp "FlowMetrics/pkg/http"
	applogger "FlowMetrics/pkg/logger"
)

// Task is a background loop stopped by cancelling its context.
type Task func(ctx context.Context)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the HTTP server, its background tasks and the resources closed on shutdown.
type App struct {
	server  *xhttp.Server
	logger  *applogger.Logger
	tasks   []Task
	closers []namedCloser
}

type Option func(*App)

// WithTask runs t for the lifetime of the app.
func WithTask(t Task) Option {
	return func(a *App) { a.tasks = append(a.tasks, t) }
}

// WithCloser registers a resource closed after the server stops.
// Closers run in reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(server *xhttp.Server, logger *applogger.Logger, opts ...Option) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	a := &App{server: server, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Server exposes the HTTP server, mainly for tests.
func (a *App) Server() *xhttp.Server { return a.server }

func (a *App) Logger() *applogger.Logger { return a.logger }

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done or the server fails.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, t := range a.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			t(ctx)
		}(t)
	}

	var runErr error
	select {
	case err, ok := <-a.server.Start():
		if ok && err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	cancel()
	wg.Wait()
	return errors.Join(runErr, a.shutdown())
}

// shutdown stops the server and closes registered resources.
func (a *App) shutdown() error {
	a.logger.Info("shutting down")
	timeout := a.server.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
