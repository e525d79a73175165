// Command unify merges ground, satellite, weather and aerosol observations
// into one hourly air-quality table.
//
// Usage:
//
//	unify run     # one run, exit status reports failure
//	unify serve   # scheduled runs plus /healthz, /readyz, /metrics and /runs/latest
//	unify validate data/processed/past_week_hourly.parquet
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/air-quality-unifier/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-unifier/internal/adapter/postgres"
	"github.com/couchcryptid/air-quality-unifier/internal/config"
	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
	"github.com/couchcryptid/air-quality-unifier/internal/observability"
	"github.com/couchcryptid/air-quality-unifier/internal/pipeline"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "unify",
	Short:         "Unify air-quality and weather observations into an hourly table.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd, serveCmd, validateCmd)

	defaults := domain.DefaultQualityOptions()
	validateCmd.Flags().Float64Var(&qualityOpts.MaxMissingRatio, "max-missing", defaults.MaxMissingRatio, "largest tolerated share of missing hours per pollutant")
	validateCmd.Flags().IntVar(&qualityOpts.MinRecordsPerDay, "min-per-day", defaults.MinRecordsPerDay, "least hours with data per full day")
}

var qualityOpts domain.QualityOptions

var errQualityFailed = errors.New("quality check failed")

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Recompute the quality report of a published Parquet or CSV table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := sink.ReadFile(args[0])
		if err != nil {
			return err
		}
		report := domain.AssessQuality(records, qualityOpts)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Passed {
			return errQualityFailed
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.pipeline.RunOnce(ctx); err != nil {
			return err // already logged by the pipeline
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on a schedule and serve health and metrics endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.ready, a.pipeline, a.logger)

		// Start HTTP server.
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", "error", err)
			}
		}()

		// Start scheduler; it returns once ctx is cancelled.
		schedErr := a.pipeline.Schedule(ctx, a.cfg.Schedule)
		if schedErr != nil {
			a.logger.Error("scheduler error", "error", schedErr)
		}
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
		a.logger.Info("shutdown complete")
		return schedErr
	},
}

// app holds the wired components of one process.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	ready    httpadapter.Checks
	closers  []func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	a := &app{cfg: cfg, logger: logger}

	var publishers []pipeline.Publisher
	if cfg.DatabaseURL != "" {
		store, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			a.close()
			logger.Error("postgres schema failed", "error", err)
			return nil, err
		}
		publishers = append(publishers, store)
		a.ready = append(a.ready, store)
		logger.Info("postgres sink enabled")
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		a.closers = append(a.closers, func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		})
		publishers = append(publishers, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.pipeline = pipeline.New(
		pipeline.ManifestSource(cfg.ManifestPath, cfg.RawDir),
		extract.NewDefaultRunner(cfg.ExtractOptions(), logger),
		sink.NewWriter(cfg.SinkOptions(), logger),
		cfg.DomainOptions(),
		logger,
		metrics,
		publishers...,
	)
	a.ready = append(a.ready, a.pipeline)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
