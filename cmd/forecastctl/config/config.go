// Package config provides configuration parsing for forecastctl.
//
// It handles both command-line flags and environment variables, with flags
// taking precedence over environment variables. The Config struct contains
// all runtime configuration for a batch_forecast run:
//   - input source (a grouped CSV file of group/timestamp/value rows)
//   - model selection and parameters
//   - horizon, confidence level, and dispatcher concurrency/safe-mode
//   - storage backend for the last batch result per group
//   - logging configuration
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config holds all forecastctl configuration.
type Config struct {
	Listen string

	InputPath       string
	GroupColumn     string
	TimestampColumn string
	ValueColumn     string

	Model           string
	ModelParamsJSON string
	SeasonalPeriod  int
	Horizon         int
	StepSeconds     int
	ConfidenceLevel float64
	SafeMode        bool
	Workers         int

	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Exits with status 1 if required flags (input, model) are missing.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address for the results surface")

	flag.StringVar(&cfg.InputPath, "input", getEnv("INPUT", ""), "Path to a grouped CSV of history rows (required)")
	flag.StringVar(&cfg.GroupColumn, "group-column", getEnv("GROUP_COLUMN", "group"), "CSV column holding the group key")
	flag.StringVar(&cfg.TimestampColumn, "timestamp-column", getEnv("TIMESTAMP_COLUMN", "timestamp"), "CSV column holding RFC3339 timestamps")
	flag.StringVar(&cfg.ValueColumn, "value-column", getEnv("VALUE_COLUMN", "value"), "CSV column holding observation values")

	flag.StringVar(&cfg.Model, "model", getEnv("MODEL", "AutoETS"), "Forecasting model name (required)")
	flag.StringVar(&cfg.ModelParamsJSON, "model-params", getEnv("MODEL_PARAMS", "{}"), "JSON object of model parameters")
	flag.IntVar(&cfg.SeasonalPeriod, "seasonal-period", getEnvInt("SEASONAL_PERIOD", 0), "Seasonal period, where applicable")
	flag.IntVar(&cfg.Horizon, "horizon", getEnvInt("HORIZON", 12), "Forecast horizon in steps")
	flag.IntVar(&cfg.StepSeconds, "step-seconds", getEnvInt("STEP_SECONDS", 3600), "Nominal step size in seconds, used when timestamps can't be extrapolated")
	flag.Float64Var(&cfg.ConfidenceLevel, "confidence-level", getEnvFloat("CONFIDENCE_LEVEL", 0.9), "Prediction interval confidence level in (0,1)")
	flag.BoolVar(&cfg.SafeMode, "safe-mode", getEnvBool("SAFE_MODE", true), "Isolate per-group failures as NaN rows instead of aborting the batch")
	flag.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", 0), "Worker pool size (0 uses GOMAXPROCS)")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password (optional)")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 30*time.Minute), "Redis snapshot TTL")

	flag.Parse()

	if cfg.InputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		os.Exit(1)
	}
	if cfg.Model == "" {
		fmt.Fprintln(os.Stderr, "Error: --model is required")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || value == "true" || value == "TRUE" || value == "True"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
