// Package batch implements the group-keyed batch dispatcher: partition a
// multi-series input by group key, fit+predict each partition against a
// bounded worker pool, and concatenate the results. The worker pool's
// stop/cancellation shape is grounded on pkg/storage/memory.go's
// stopCleanup/cleanupDone channel pair (runCleanup/Stop), generalized
// from one background ticker goroutine to N worker goroutines draining
// a shared job channel, each independently watching ctx.Done() the same
// way memory.go's cleanup loop does.
package batch

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/kedastral/forecastcore/pkg/forecast"
	"github.com/kedastral/forecastcore/pkg/forecast/registry"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
)

// Job is one group's input series, keyed by an opaque, host-preserved
// group key (must be a comparable value — typically a string or int).
type Job struct {
	GroupKey any
	Series   series.TimeSeries
}

// Row is one (group, forecast_step) output row.
type Row struct {
	GroupKey          any
	ForecastStep      int
	ForecastTimestamp time.Time
	PointForecast     float64
	Lower             float64
	Upper             float64
	ModelName         string
	ConfidenceLevel   float64
	ErrorKind         string
	FitTimeMs         float64
	AIC, BIC, AICc    float64
	HasInformationCriteria bool
}

// Options configures one Dispatch call: every group in the batch is fit
// with the same model/params/horizon/confidence level.
type Options struct {
	ModelName       string
	Params          registry.Params
	SeasonalPeriod  int
	Horizon         int
	ConfidenceLevel float64
	SafeMode        bool // isolate per-group failures; the zero value (false) disables isolation, forecastctl's -safe-mode flag defaults to true
	Workers         int  // <= 0 uses runtime.GOMAXPROCS(0)
}

// Dispatch partitions jobs across a bounded worker pool, fitting and
// predicting each group independently. Rows within a group are ordered
// by forecast_step ascending; no ordering is guaranteed across groups.
// Under SafeMode, a per-group failure yields NaN rows tagged with the
// failure's Kind and processing continues; otherwise the first failure
// encountered cancels the remaining work and is returned to the caller.
func Dispatch(ctx context.Context, jobs []Job, opts Options, m *Metrics) ([]Row, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	results := make([][]Row, len(jobs))

	var wg sync.WaitGroup
	var firstErrMu sync.Mutex
	var firstErr error

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case idx, ok := <-jobCh:
				if !ok {
					return
				}
				rows, err := processGroup(runCtx, jobs[idx], opts, m)
				if err != nil && !opts.SafeMode {
					firstErrMu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					firstErrMu.Unlock()
					return
				}
				results[idx] = rows
			}
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker()
	}
	wg.Wait()

	firstErrMu.Lock()
	err := firstErr
	firstErrMu.Unlock()
	if err != nil {
		return nil, err
	}

	total := 0
	for _, rs := range results {
		total += len(rs)
	}
	out := make([]Row, 0, total)
	for _, rs := range results {
		out = append(out, rs...)
	}
	return out, nil
}

func processGroup(ctx context.Context, job Job, opts Options, m *Metrics) ([]Row, error) {
	select {
	case <-ctx.Done():
		return handleGroupError(job, opts, m, forecast.New(forecast.Cancelled, "context cancelled before group started"))
	default:
	}

	fitStart := time.Now()
	inst, err := registry.Create(opts.ModelName, opts.Params, opts.SeasonalPeriod)
	if err != nil {
		return handleGroupError(job, opts, m, wrapRegistryErr(err))
	}
	if err := inst.Fit(job.Series); err != nil {
		return handleGroupError(job, opts, m, wrapRegistryErr(err))
	}
	fitMs := float64(time.Since(fitStart).Microseconds()) / 1000.0
	if m != nil {
		m.GroupFitSeconds.Observe(time.Since(fitStart).Seconds())
	}

	predictStart := time.Now()
	fc, err := inst.Predict(opts.Horizon, opts.ConfidenceLevel)
	if err != nil {
		return handleGroupError(job, opts, m, wrapRegistryErr(err))
	}
	if m != nil {
		m.GroupPredictSeconds.Observe(time.Since(predictStart).Seconds())
		m.GroupsTotal.Inc()
	}

	rows := make([]Row, fc.Len())
	for i := 0; i < fc.Len(); i++ {
		row := Row{
			GroupKey:        job.GroupKey,
			ForecastStep:    i + 1,
			PointForecast:   fc.Point[i],
			ModelName:       fc.Model,
			ConfidenceLevel: fc.ConfidenceLevel,
			FitTimeMs:       fitMs,
		}
		if i < len(fc.Timestamps) {
			row.ForecastTimestamp = fc.Timestamps[i]
		}
		if fc.HasIntervals() {
			row.Lower = fc.Lower[i]
			row.Upper = fc.Upper[i]
		}
		if fc.HasInformationCriteria {
			row.AIC, row.BIC, row.AICc = fc.AIC, fc.BIC, fc.AICc
			row.HasInformationCriteria = true
		}
		rows[i] = row
	}
	return rows, nil
}

// wrapRegistryErr classifies an error surfaced by the registry/model
// layer into the shared Kind taxonomy when it isn't already a
// *forecast.Error (e.g. a plain fmt.Errorf from series.New validation).
func wrapRegistryErr(err error) error {
	if _, ok := err.(*forecast.Error); ok {
		return err
	}
	return forecast.Wrap(forecast.KindOf(err), "group processing failed", err)
}

// handleGroupError builds the safe_mode sentinel rows (NaN forecasts,
// empty model tag, error-kind tag preserved) or propagates the error
// when SafeMode is disabled.
func handleGroupError(job Job, opts Options, m *Metrics, err error) ([]Row, error) {
	kind := forecast.KindOf(err)
	if m != nil {
		m.ErrorsTotal.WithLabelValues(kind.String()).Inc()
	}
	if !opts.SafeMode {
		return nil, err
	}
	rows := make([]Row, opts.Horizon)
	for i := 0; i < opts.Horizon; i++ {
		rows[i] = Row{
			GroupKey:        job.GroupKey,
			ForecastStep:    i + 1,
			PointForecast:   math.NaN(),
			Lower:           math.NaN(),
			Upper:           math.NaN(),
			ModelName:       "",
			ConfidenceLevel: opts.ConfidenceLevel,
			ErrorKind:       kind.String(),
		}
	}
	return rows, nil
}
