// Package router configures HTTP routes for forecastctl's results surface.
//
// forecastctl exposes an HTTP server (default :8082) that serves the last
// batch_forecast result per group, a health check, and Prometheus metrics.
//
// Routes configured:
//   - GET /forecast/current?group=<name> - Retrieve latest batch snapshot for a group
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// Snapshots older than the stale threshold include an X-Forecastcore-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kedastral/forecastcore/pkg/httpx"
	"github.com/kedastral/forecastcore/pkg/storage"
)

var groupNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures HTTP endpoints for forecastctl.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.HandleFunc("/forecast/current", handleGetSnapshot(store, staleAfter, logger))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /forecast/current?group=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := r.URL.Query().Get("group")
		if group == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "group parameter required")
			return
		}

		if !groupNameRegex.MatchString(group) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid group name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, group)
		if err != nil {
			logger.Error("failed to get snapshot", "group", group, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for group %q", group))
			return
		}

		if time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set("X-Forecastcore-Stale", "true")
		}

		resp := map[string]any{
			"group":           snapshot.Group,
			"model":           snapshot.ModelName,
			"generatedAt":     snapshot.GeneratedAt.Format(time.RFC3339),
			"stepSeconds":     snapshot.StepSeconds,
			"horizonSeconds":  snapshot.HorizonSeconds,
			"confidenceLevel": snapshot.ConfidenceLevel,
			"point":           snapshot.Point,
			"lower":           snapshot.Lower,
			"upper":           snapshot.Upper,
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
