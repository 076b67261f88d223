package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FlowMetrics/internal/di"
	"FlowMetrics/pkg/config"
	applogger "FlowMetrics/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "flowmetrics",
		Short:        "Derived market analytics: VWAP/TWAP, CVD, volume profile, volatility regime and flow bias",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path (empty for defaults)")

	root.AddCommand(newServeCmd(&configPath), newQueryCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			// Wire DI: Initialize all dependencies
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}

			app.Logger().Info("starting",
				applogger.String("env", cfg.Environment),
				applogger.String("provider", cfg.Provider.Type),
				applogger.String("cache", cfg.Cache.Backend),
				applogger.Bool("kafka", cfg.Kafka.Enabled),
			)

			// Run application (blocks until signal)
			return app.Run()
		},
	}
}
