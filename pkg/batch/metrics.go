package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for the batch dispatcher,
// adapted from cmd/forecaster/metrics/metrics.go's histogram-per-stage
// plus errors-by-reason counter shape, generalized from a single
// workload label to a model label (one dispatch call can mix models
// across groups only if the caller runs separate batches per model, so
// a single model label per Metrics instance mirrors the teacher's
// single-workload-per-process assumption).
type Metrics struct {
	GroupFitSeconds     prometheus.Histogram
	GroupPredictSeconds prometheus.Histogram
	GroupsTotal         prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
}

// NewMetrics registers batch dispatcher metrics against reg, letting
// tests pass a private prometheus.NewRegistry() instead of colliding on
// the global default registerer the teacher always used.
func NewMetrics(reg prometheus.Registerer, model string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GroupFitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "forecastcore_batch_group_fit_seconds",
			Help:        "Time spent fitting a model for one group",
			ConstLabels: prometheus.Labels{"model": model},
			Buckets:     prometheus.DefBuckets,
		}),
		GroupPredictSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "forecastcore_batch_group_predict_seconds",
			Help:        "Time spent predicting for one group",
			ConstLabels: prometheus.Labels{"model": model},
			Buckets:     prometheus.DefBuckets,
		}),
		GroupsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "forecastcore_batch_groups_total",
			Help:        "Total number of groups processed",
			ConstLabels: prometheus.Labels{"model": model},
		}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "forecastcore_batch_errors_total",
			Help:        "Total number of per-group failures by error kind",
			ConstLabels: prometheus.Labels{"model": model},
		}, []string{"kind"}),
	}
}
