package storage

import (
	"context"
	"time"
)

// BatchSnapshot is the last batch_forecast result set for one group,
// generalized from the teacher's per-workload Snapshot (Workload/Metric/
// DesiredReplicas) to the dispatcher's per-group forecast result: no
// capacity-planning fields (DesiredReplicas, Quantiles-by-level) survive
// since this module has no scaler downstream, just point/lower/upper at
// a single confidence level per C11's result.Forecast.
type BatchSnapshot struct {
	Group           string
	ModelName       string
	GeneratedAt     time.Time
	StepSeconds     int
	HorizonSeconds  int
	ConfidenceLevel float64
	Point           []float64
	Lower           []float64
	Upper           []float64
}

// Store persists the latest BatchSnapshot per group key.
type Store interface {
	Put(ctx context.Context, snapshot BatchSnapshot) error
	GetLatest(ctx context.Context, group string) (BatchSnapshot, bool, error)
}
