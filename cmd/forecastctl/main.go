// Command forecastctl runs a single batch_forecast pass over a grouped CSV
// of history rows: partition by group key, fit+predict every group against
// the configured model, cache the last result per group, and serve it over
// HTTP.
//
// forecastctl serves an HTTP API on port 8082 (configurable) providing:
//   - GET /forecast/current?group=<name> - Retrieve latest batch snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	forecastctl \
//	  -input=history.csv \
//	  -model=AutoETS \
//	  -seasonal-period=12 \
//	  -horizon=12 \
//	  -confidence-level=0.9
//
// Environment variables mirror every flag (see cmd/forecastctl/config).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kedastral/forecastcore/cmd/forecastctl/config"
	"github.com/kedastral/forecastcore/cmd/forecastctl/router"
	"github.com/kedastral/forecastcore/pkg/batch"
	"github.com/kedastral/forecastcore/pkg/httpx"
	"github.com/kedastral/forecastcore/pkg/storage"
)

var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting forecastctl",
		"version", version,
		"model", cfg.Model,
		"input", cfg.InputPath,
	)

	jobs, err := loadJobs(cfg.InputPath, cfg.GroupColumn, cfg.TimestampColumn, cfg.ValueColumn)
	if err != nil {
		logger.Error("failed to load input", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded input", "groups", len(jobs))

	params, err := parseModelParams(cfg.ModelParamsJSON)
	if err != nil {
		logger.Error("failed to parse model params", "error", err)
		os.Exit(1)
	}

	store := newStore(cfg, logger)
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	opts := batch.Options{
		ModelName:       cfg.Model,
		Params:          params,
		SeasonalPeriod:  cfg.SeasonalPeriod,
		Horizon:         cfg.Horizon,
		ConfidenceLevel: cfg.ConfidenceLevel,
		SafeMode:        cfg.SafeMode,
		Workers:         cfg.Workers,
	}

	m := batch.NewMetrics(prometheus.DefaultRegisterer, cfg.Model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows, err := batch.Dispatch(ctx, jobs, opts, m)
	if err != nil {
		logger.Error("batch dispatch failed", "error", err)
		os.Exit(1)
	}
	logger.Info("batch dispatch complete", "rows", len(rows))

	generatedAt := time.Now()
	if err := storeBatchResults(ctx, store, jobs, rows, cfg, generatedAt); err != nil {
		logger.Error("failed to persist batch results", "error", err)
		os.Exit(1)
	}

	staleAfter := 2 * time.Duration(cfg.Horizon) * time.Second
	mux := router.SetupRoutes(store, staleAfter, logger)
	httpServer := httpx.NewServer(cfg.Listen, mux, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// newLogger builds the slog logger per the configured format/level.
func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newStore constructs the configured storage backend.
func newStore(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis, falling back to memory store", "error", err)
			return storage.NewMemoryStore()
		}
		return s
	default:
		return storage.NewMemoryStore()
	}
}

// storeBatchResults regroups the dispatcher's flat Row slice back into one
// BatchSnapshot per group and persists each.
func storeBatchResults(ctx context.Context, store storage.Store, jobs []batch.Job, rows []batch.Row, cfg *config.Config, generatedAt time.Time) error {
	byGroup := make(map[string][]batch.Row, len(jobs))
	for _, row := range rows {
		key, ok := row.GroupKey.(string)
		if !ok {
			key = fmt.Sprintf("%v", row.GroupKey)
		}
		byGroup[key] = append(byGroup[key], row)
	}

	for _, job := range jobs {
		key, ok := job.GroupKey.(string)
		if !ok {
			key = fmt.Sprintf("%v", job.GroupKey)
		}
		groupRows := byGroup[key]
		if len(groupRows) == 0 {
			continue
		}

		point := make([]float64, len(groupRows))
		lower := make([]float64, len(groupRows))
		upper := make([]float64, len(groupRows))
		modelName := ""
		for i, r := range groupRows {
			point[i] = r.PointForecast
			lower[i] = r.Lower
			upper[i] = r.Upper
			if r.ModelName != "" {
				modelName = r.ModelName
			}
		}

		stepSeconds := cfg.StepSeconds
		if interval, err := job.Series.MedianInterval(); err == nil {
			stepSeconds = int(interval.Seconds())
		}

		snapshot := storage.BatchSnapshot{
			Group:           key,
			ModelName:       modelName,
			GeneratedAt:     generatedAt,
			StepSeconds:     stepSeconds,
			HorizonSeconds:  stepSeconds * cfg.Horizon,
			ConfidenceLevel: cfg.ConfidenceLevel,
			Point:           point,
			Lower:           lower,
			Upper:           upper,
		}

		if err := store.Put(ctx, snapshot); err != nil {
			return fmt.Errorf("store batch result for group %q: %w", key, err)
		}
	}
	return nil
}
