// Package baseline implements the simple reference forecasters: Naive,
// SeasonalNaive, RandomWalkDrift, SMA, and SES/SESOptimized. These mirror
// the role of the teacher's BaselineModel (pkg/models/baseline.go) but are
// split into independently addressable models, since the model registry
// must expose each one by name.
package baseline

import (
	"fmt"
	"math"

	"github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/optimize"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// Fitted is the common output of every baseline: a name, the fitted
// (in-sample one-step-ahead) values, residuals, a closure producing the
// point forecast for a given horizon, and the variance growth law used to
// widen prediction intervals across that horizon.
type Fitted struct {
	ModelName string
	Fitted    []float64
	Resid     []float64
	forecast  func(h int) []float64
	growth    interval.VarianceGrowth
}

func (f *Fitted) Forecast(ts series.TimeSeries, h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("%s: horizon must be positive", f.ModelName)
	}
	timestamps, err := tsgen.Generate(ts, h)
	if err != nil {
		return result.Forecast{}, err
	}
	fc := result.Forecast{
		Model:           f.ModelName,
		Timestamps:      timestamps,
		Point:           f.forecast(h),
		ConfidenceLevel: confidenceLevel,
		Fitted:          f.Fitted,
	}
	residualStdDev := interval.ResidualStdDev(f.Resid)
	if err := interval.Apply(&fc, residualStdDev, false, f.growth); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}

func residualsFrom(values, fitted []float64) []float64 {
	resid := make([]float64, len(values))
	for i := range values {
		resid[i] = values[i] - fitted[i]
	}
	return resid
}

// Naive forecasts every horizon step as the last observed value.
func Naive(ts series.TimeSeries) (*Fitted, error) {
	if ts.Len() < 1 {
		return nil, fmt.Errorf("naive: empty series")
	}
	fitted := make([]float64, ts.Len())
	fitted[0] = ts.Values[0]
	for i := 1; i < ts.Len(); i++ {
		fitted[i] = ts.Values[i-1]
	}
	last := ts.Values[ts.Len()-1]
	return &Fitted{
		ModelName: "naive",
		Fitted:    fitted,
		Resid:     residualsFrom(ts.Values, fitted),
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := range out {
				out[i] = last
			}
			return out
		},
		growth: interval.LinearGrowth,
	}, nil
}

// SeasonalNaive forecasts each horizon step as the observation one full
// seasonal period back.
func SeasonalNaive(ts series.TimeSeries, period int) (*Fitted, error) {
	if period < 2 {
		return nil, fmt.Errorf("seasonal_naive: period must be >= 2")
	}
	if ts.Len() < period {
		return nil, fmt.Errorf("seasonal_naive: need at least %d points, have %d", period, ts.Len())
	}
	fitted := make([]float64, ts.Len())
	for i := range ts.Values {
		if i < period {
			fitted[i] = ts.Values[i]
		} else {
			fitted[i] = ts.Values[i-period]
		}
	}
	n := ts.Len()
	return &Fitted{
		ModelName: "seasonal_naive",
		Fitted:    fitted,
		Resid:     residualsFrom(ts.Values, fitted),
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := 0; i < h; i++ {
				srcIdx := n - period + (i % period)
				out[i] = ts.Values[srcIdx]
			}
			return out
		},
		growth: interval.LinearGrowth,
	}, nil
}

// RandomWalkDrift extrapolates linearly using the average per-step change
// across the whole series.
func RandomWalkDrift(ts series.TimeSeries) (*Fitted, error) {
	n := ts.Len()
	if n < 2 {
		return nil, fmt.Errorf("random_walk_drift: need at least 2 points")
	}
	drift := (ts.Values[n-1] - ts.Values[0]) / float64(n-1)
	fitted := make([]float64, n)
	fitted[0] = ts.Values[0]
	for i := 1; i < n; i++ {
		fitted[i] = ts.Values[i-1] + drift
	}
	last := ts.Values[n-1]
	return &Fitted{
		ModelName: "random_walk_drift",
		Fitted:    fitted,
		Resid:     residualsFrom(ts.Values, fitted),
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := range out {
				out[i] = last + drift*float64(i+1)
			}
			return out
		},
		growth: interval.DriftGrowth(n),
	}, nil
}

// SMA forecasts the flat average of the trailing window.
func SMA(ts series.TimeSeries, window int) (*Fitted, error) {
	if window < 1 {
		return nil, fmt.Errorf("sma: window must be >= 1")
	}
	n := ts.Len()
	if n < window {
		return nil, fmt.Errorf("sma: need at least %d points, have %d", window, n)
	}
	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		count := 0
		for j := start; j <= i; j++ {
			sum += ts.Values[j]
			count++
		}
		fitted[i] = sum / float64(count)
	}
	var lastSum float64
	for _, v := range ts.Values[n-window:] {
		lastSum += v
	}
	avg := lastSum / float64(window)
	return &Fitted{
		ModelName: "sma",
		Fitted:    fitted,
		Resid:     residualsFrom(ts.Values, fitted),
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := range out {
				out[i] = avg
			}
			return out
		},
		growth: interval.LinearGrowth,
	}, nil
}

// SES fits simple exponential smoothing at a fixed alpha (no optimization).
func SES(ts series.TimeSeries, alpha float64) (*Fitted, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("ses: alpha must be in (0,1), got %v", alpha)
	}
	return fitSES(ts, alpha, "ses")
}

// SESOptimized fits simple exponential smoothing with alpha chosen by
// minimizing in-sample SSE via Nelder-Mead.
func SESOptimized(ts series.TimeSeries) (*Fitted, error) {
	objective := func(x []float64) float64 {
		a := x[0]
		if a <= 0 || a >= 1 {
			return math.Inf(1)
		}
		_, resid, _ := sesFilter(ts.Values, a)
		return sumSq(resid)
	}
	res := optimize.Minimize(objective, []float64{0.3}, optimize.Bounds{Min: []float64{1e-4}, Max: []float64{0.999}}, optimize.NelderMead)
	if !res.Feasible {
		return nil, fmt.Errorf("ses_optimized: optimizer failed to converge")
	}
	return fitSES(ts, res.X[0], "ses_optimized")
}

func fitSES(ts series.TimeSeries, alpha float64, name string) (*Fitted, error) {
	if ts.Len() < 1 {
		return nil, fmt.Errorf("%s: empty series", name)
	}
	fitted, resid, level := sesFilter(ts.Values, alpha)
	return &Fitted{
		ModelName: name,
		Fitted:    fitted,
		Resid:     resid,
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := range out {
				out[i] = level
			}
			return out
		},
		growth: interval.LinearGrowth,
	}, nil
}

func sesFilter(values []float64, alpha float64) (fitted, resid []float64, finalLevel float64) {
	n := len(values)
	fitted = make([]float64, n)
	resid = make([]float64, n)
	level := values[0]
	fitted[0] = level
	for t := 1; t < n; t++ {
		fitted[t] = level
		resid[t] = values[t] - level
		level = alpha*values[t] + (1-alpha)*level
	}
	if n > 0 {
		resid[0] = values[0] - fitted[0]
	}
	return fitted, resid, level
}

func sumSq(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}
