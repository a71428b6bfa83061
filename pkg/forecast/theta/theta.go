// Package theta implements the Theta and Optimized/Dynamic Theta methods
// in their unified state-space (Pegels) form: a single exponentially
// smoothed level plus a drift term capturing the long-run theta-line
// slope, optionally deseasonalized first.
package theta

import (
	"fmt"
	"math"

	"github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/optimize"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// Variant selects which of the four theta flavors to fit.
type Variant int

const (
	Standard Variant = iota
	Optimized
	Dynamic
	DynamicOptimized
)

// Config names a theta fit.
type Config struct {
	Variant Variant
	Period  int // seasonal period; 0 disables deseasonalization
}

func (c Config) Name() string {
	switch c.Variant {
	case Optimized:
		return "Theta(optimized)"
	case Dynamic:
		return "Theta(dynamic)"
	case DynamicOptimized:
		return "Theta(dynamic-optimized)"
	default:
		return "Theta(standard)"
	}
}

// State is the fitted 5-component state: level, drift, smoothing
// parameter, seasonal indices, and residual variance.
type State struct {
	Cfg      Config
	Alpha    float64
	Drift    float64
	Level0   float64
	Seasonal []float64 // multiplicative seasonal indices, length Period
	level    float64
	n        int
	Fitted   []float64
	Resid    []float64
	Sigma2   float64
	AICc     float64
}

// deseasonalize computes classical multiplicative seasonal indices via a
// centered moving average, mirroring the decomposition idiom used for
// multiseasonal MSTL (pkg/forecast/multiseasonal), and returns the
// deseasonalized series alongside the indices.
func deseasonalize(values []float64, period int) (deseasoned []float64, indices []float64) {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}
	half := period / 2
	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 0 {
			sum += 0.5 * values[i-half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
			sum += 0.5 * values[i+half]
			trend[i] = sum / float64(period)
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	}

	seasonalSums := make([]float64, period)
	seasonalCounts := make([]int, period)
	for i, v := range values {
		if math.IsNaN(trend[i]) || trend[i] == 0 {
			continue
		}
		idx := i % period
		seasonalSums[idx] += v / trend[i]
		seasonalCounts[idx]++
	}
	indices = make([]float64, period)
	var total float64
	for i := range indices {
		if seasonalCounts[i] > 0 {
			indices[i] = seasonalSums[i] / float64(seasonalCounts[i])
		} else {
			indices[i] = 1
		}
		total += indices[i]
	}
	// Normalize so indices average to 1.
	mean := total / float64(period)
	if mean != 0 {
		for i := range indices {
			indices[i] /= mean
		}
	}

	deseasoned = make([]float64, n)
	for i, v := range values {
		idx := i % period
		if indices[idx] != 0 {
			deseasoned[i] = v / indices[idx]
		} else {
			deseasoned[i] = v
		}
	}
	return deseasoned, indices
}

// Fit estimates the theta state from ts.
func Fit(ts series.TimeSeries, cfg Config) (*State, error) {
	values := ts.Values
	var indices []float64
	work := values
	if cfg.Period >= 2 {
		if ts.Len() < 2*cfg.Period {
			return nil, fmt.Errorf("theta: need at least 2 full seasonal cycles, have %d points for period %d", ts.Len(), cfg.Period)
		}
		if !ts.AllPositive() {
			return nil, fmt.Errorf("theta: seasonal deseasonalization requires strictly positive observations")
		}
		work, indices = deseasonalize(values, cfg.Period)
	}

	n := len(work)
	drift := linearDrift(work)

	fixedAlpha := 0.2
	dynamic := cfg.Variant == Dynamic || cfg.Variant == DynamicOptimized
	optimized := cfg.Variant == Optimized || cfg.Variant == DynamicOptimized

	alpha := fixedAlpha
	if optimized {
		objective := func(x []float64) float64 {
			a := x[0]
			if a <= 0 || a >= 1 {
				return math.Inf(1)
			}
			_, resid := runLevel(work, a, drift, dynamic)
			return sumSq(resid)
		}
		res := optimize.Minimize(objective, []float64{0.2}, optimize.Bounds{Min: []float64{1e-4}, Max: []float64{0.999}}, optimize.NelderMead)
		if res.Feasible {
			alpha = res.X[0]
		}
	}

	fitted, resid, finalSmoothedLevel := runLevelState(work, alpha, drift, dynamic)

	reseasoned := make([]float64, n)
	if cfg.Period >= 2 {
		for i, v := range fitted {
			idx := i % cfg.Period
			reseasoned[i] = v * indices[idx]
		}
	} else {
		copy(reseasoned, fitted)
	}

	sigma2 := sumSq(resid) / float64(n)
	k := 2.0
	if optimized {
		k = 3
	}
	aicc := n64Log(n, sigma2) + 2*k
	if float64(n)-k-1 > 0 {
		aicc += (2 * k * (k + 1)) / (float64(n) - k - 1)
	}

	return &State{
		Cfg: cfg, Alpha: alpha, Drift: drift, Level0: fitted[0],
		Seasonal: indices, level: finalSmoothedLevel, n: n,
		Fitted: reseasoned, Resid: resid, Sigma2: sigma2, AICc: aicc,
	}, nil
}

func n64Log(n int, sigma2 float64) float64 {
	if sigma2 <= 0 {
		sigma2 = 1e-12
	}
	return float64(n) * math.Log(sigma2)
}

func sumSq(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}

// linearDrift returns the OLS slope of values against index, the
// "theta-line" long-run trend component.
func linearDrift(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// runLevel runs simple exponential smoothing over values with an added
// drift term; when dynamic is true the drift is scaled by 2/(n-1) per
// step as in the dynamic theta-line formulation, otherwise it is constant.
func runLevel(values []float64, alpha, drift float64, dynamic bool) (fitted, resid []float64) {
	fitted, resid, _ = runLevelState(values, alpha, drift, dynamic)
	return fitted, resid
}

func runLevelState(values []float64, alpha, drift float64, dynamic bool) (fitted, resid []float64, finalLevel float64) {
	n := len(values)
	fitted = make([]float64, n)
	resid = make([]float64, n)
	level := values[0]
	for t := 0; t < n; t++ {
		d := drift * float64(t)
		if dynamic && n > 1 {
			d = drift * (2.0 / float64(n-1)) * float64(t)
		}
		yhat := level + d
		fitted[t] = yhat
		resid[t] = values[t] - yhat
		level = alpha*values[t] + (1-alpha)*level
	}
	return fitted, resid, level
}

// Forecast produces h-step-ahead forecasts.
func (s *State) Forecast(ts series.TimeSeries, h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("theta: horizon must be positive")
	}
	timestamps, err := tsgen.Generate(ts, h)
	if err != nil {
		return result.Forecast{}, err
	}
	point := make([]float64, h)
	dynamic := s.Cfg.Variant == Dynamic || s.Cfg.Variant == DynamicOptimized
	for i := 1; i <= h; i++ {
		d := s.Drift
		if dynamic && s.n > 1 {
			d = s.Drift * (2.0 / float64(s.n-1)) * float64(s.n-1+i)
		} else {
			d = s.Drift * float64(i)
		}
		val := s.level + d
		if s.Cfg.Period >= 2 {
			idx := (s.n + i - 1) % s.Cfg.Period
			val *= s.Seasonal[idx]
		}
		point[i-1] = val
	}
	fc := result.Forecast{
		Model:           s.Cfg.Name(),
		Timestamps:      timestamps,
		Point:           point,
		ConfidenceLevel: confidenceLevel,
		Fitted:          s.Fitted,
		AICc:            s.AICc,
		HasInformationCriteria: true,
	}
	// The theta line carries a linear drift term, the same growth law as
	// random-walk-with-drift: forecast variance compounds with the
	// estimation uncertainty of that drift.
	residualStdDev := interval.ResidualStdDev(s.Resid)
	if err := interval.Apply(&fc, residualStdDev, false, interval.DriftGrowth(s.n)); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}
