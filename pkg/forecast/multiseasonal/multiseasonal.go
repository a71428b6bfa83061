// Package multiseasonal implements MSTL (multiple seasonal-trend
// decomposition), a simplified MFLES, and a reduced TBATS for series with
// more than one seasonal period. The decomposition loop is grounded on
// the classical centered-moving-average decomposition found in the pack's
// ClusterOptimization repo (pkg/prediction/decomposition.go), generalized
// here to iterate over multiple periods from longest to shortest.
package multiseasonal

import (
	"fmt"
	"math"
	"sort"

	"github.com/kedastral/forecastcore/pkg/forecast/autoets"
	"github.com/kedastral/forecastcore/pkg/forecast/ets"
	"github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// centeredMovingAverage mirrors ClusterOptimization's trend-extraction
// step: a period-length centered moving average, NaN at the edges.
func centeredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
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
			out[i] = sum / float64(period)
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			out[i] = sum / float64(period)
		}
	}
	return out
}

// seasonalComponent extracts an additive seasonal component of the given
// period from detrended values (the series minus its moving-average
// trend), averaging by phase and centering the result to zero mean, the
// same two-pass structure as ClusterOptimization's Decompose.
func seasonalComponent(detrended []float64, period int) []float64 {
	sums := make([]float64, period)
	counts := make([]int, period)
	for i, v := range detrended {
		if math.IsNaN(v) {
			continue
		}
		idx := i % period
		sums[idx] += v
		counts[idx]++
	}
	phase := make([]float64, period)
	var total float64
	for i := range phase {
		if counts[i] > 0 {
			phase[i] = sums[i] / float64(counts[i])
		}
		total += phase[i]
	}
	mean := total / float64(period)
	for i := range phase {
		phase[i] -= mean
	}
	out := make([]float64, len(detrended))
	for i := range out {
		out[i] = phase[i%period]
	}
	return out
}

// MSTLResult holds the decomposition and the fitted trend+remainder
// forecaster.
type MSTLResult struct {
	Periods    []int
	Seasonals  map[int][]float64 // period -> seasonal component series
	TrendRemainder []float64
	trendModel *ets.Fitted
	n          int
	ts         series.TimeSeries
}

// Fit decomposes ts additively across periods (processed longest-first,
// each pass removing its seasonal component from the running residual),
// then fits AutoETS(seasonal=none) to the leftover trend+remainder — the
// resolution adopted for the spec's MSTL-forecast open question.
func Fit(ts series.TimeSeries, periods []int) (*MSTLResult, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("mstl: at least one seasonal period required")
	}
	sorted := append([]int(nil), periods...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	maxPeriod := sorted[0]
	if ts.Len() < 2*maxPeriod {
		return nil, fmt.Errorf("mstl: need at least 2 full cycles of the longest period %d, have %d points", maxPeriod, ts.Len())
	}

	residual := append([]float64(nil), ts.Values...)
	seasonals := make(map[int][]float64)

	for _, p := range sorted {
		if p < 2 {
			return nil, fmt.Errorf("mstl: period must be >= 2, got %d", p)
		}
		trend := centeredMovingAverage(residual, p)
		detrended := make([]float64, len(residual))
		for i := range residual {
			if math.IsNaN(trend[i]) {
				detrended[i] = 0
			} else {
				detrended[i] = residual[i] - trend[i]
			}
		}
		seas := seasonalComponent(detrended, p)
		seasonals[p] = seas
		for i := range residual {
			residual[i] -= seas[i]
		}
	}

	trendRemainder := residual
	trTS, err := series.New(ts.Name+"_trend_remainder", ts.Timestamps, trendRemainder)
	if err != nil {
		return nil, fmt.Errorf("mstl: %w", err)
	}
	auto, err := autoets.Select(trTS, autoets.Options{Period: 0, AllowMultiplicative: false})
	if err != nil {
		return nil, fmt.Errorf("mstl: trend+remainder fit failed: %w", err)
	}

	return &MSTLResult{
		Periods: sorted, Seasonals: seasonals, TrendRemainder: trendRemainder,
		trendModel: auto.Best, n: ts.Len(), ts: ts,
	}, nil
}

// Forecast reconstructs h-step-ahead forecasts as the AutoETS
// trend+remainder forecast plus each period's seasonal component,
// extrapolated by repeating its last full cycle.
func (m *MSTLResult) Forecast(h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("mstl: horizon must be positive")
	}
	timestamps, err := tsgen.Generate(m.ts, h)
	if err != nil {
		return result.Forecast{}, err
	}
	trTS, _ := series.New("trend_remainder", m.ts.Timestamps, m.TrendRemainder)
	base, err := m.trendModel.Forecast(trTS, h, confidenceLevel)
	if err != nil {
		return result.Forecast{}, err
	}
	point := append([]float64(nil), base.Point...)
	hasBaseIntervals := base.HasIntervals()
	var lower, upper []float64
	if hasBaseIntervals {
		lower = append([]float64(nil), base.Lower...)
		upper = append([]float64(nil), base.Upper...)
	}
	for _, p := range m.Periods {
		seas := m.Seasonals[p]
		for i := 0; i < h; i++ {
			idx := (m.n + i) % p
			point[i] += seas[idx]
			if hasBaseIntervals {
				lower[i] += seas[idx]
				upper[i] += seas[idx]
			}
		}
	}
	return result.Forecast{
		Model:           "MSTL",
		Timestamps:      timestamps,
		Point:           point,
		Lower:           lower,
		Upper:           upper,
		ConfidenceLevel: confidenceLevel,
	}, nil
}

// MFLESResult is a simplified Multiple Fourier-Lags Exponential Smoothing
// fit: like MSTL but uses a single pass of simple exponential smoothing
// (rather than an AutoETS search) on the trend+remainder, giving more
// weight to recent observations — reuses the MSTL decomposition loop for
// the seasonal extraction stage.
type MFLESResult struct {
	*MSTLResult
	alpha float64
	level float64
	resid []float64
}

// FitMFLES decomposes like MSTL but smooths the trend+remainder with
// simple exponential smoothing instead of AutoETS, a cheaper alternative
// for long high-frequency series where a full ETS search is wasteful.
func FitMFLES(ts series.TimeSeries, periods []int, alpha float64) (*MFLESResult, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("mfles: alpha must be in (0,1)")
	}
	sorted := append([]int(nil), periods...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	maxPeriod := sorted[0]
	if ts.Len() < 2*maxPeriod {
		return nil, fmt.Errorf("mfles: need at least 2 full cycles of the longest period %d, have %d points", maxPeriod, ts.Len())
	}

	residual := append([]float64(nil), ts.Values...)
	seasonals := make(map[int][]float64)
	for _, p := range sorted {
		trend := centeredMovingAverage(residual, p)
		detrended := make([]float64, len(residual))
		for i := range residual {
			if math.IsNaN(trend[i]) {
				detrended[i] = 0
			} else {
				detrended[i] = residual[i] - trend[i]
			}
		}
		seas := seasonalComponent(detrended, p)
		seasonals[p] = seas
		for i := range residual {
			residual[i] -= seas[i]
		}
	}

	level := residual[0]
	resid := make([]float64, len(residual))
	for i, v := range residual {
		resid[i] = v - level
		level = alpha*v + (1-alpha)*level
	}

	return &MFLESResult{
		MSTLResult: &MSTLResult{Periods: sorted, Seasonals: seasonals, TrendRemainder: residual, n: ts.Len(), ts: ts},
		alpha:      alpha, level: level, resid: resid,
	}, nil
}

// Forecast produces h-step-ahead forecasts: flat smoothed level plus each
// period's seasonal component.
func (m *MFLESResult) Forecast(h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("mfles: horizon must be positive")
	}
	timestamps, err := tsgen.Generate(m.ts, h)
	if err != nil {
		return result.Forecast{}, err
	}
	point := make([]float64, h)
	for i := 0; i < h; i++ {
		v := m.level
		for _, p := range m.Periods {
			v += m.Seasonals[p][(m.n+i)%p]
		}
		point[i] = v
	}
	fc := result.Forecast{
		Model:           "MFLES",
		Timestamps:      timestamps,
		Point:           point,
		ConfidenceLevel: confidenceLevel,
	}
	residualStdDev := interval.ResidualStdDev(m.resid)
	if err := interval.Apply(&fc, residualStdDev, false, interval.LinearGrowth); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}

// TBATSReducedResult is a reduced TBATS: trigonometric (Fourier-pair)
// representation of each seasonal period plus a flat level (the mean of
// what the Fourier terms leave). It has no trend component, damped or
// otherwise, no ARMA error correction and no Box-Cox search.
type TBATSReducedResult struct {
	Periods    []int
	harmonics  map[int]int
	coeffs     map[int][]float64 // per-period [a1,b1,a2,b2,...], one pair per harmonic
	level      float64
	resid      []float64
	n          int
	ts         series.TimeSeries
}

// FitTBATSReduced fits per-period Fourier terms by least squares against
// the raw series (no detrending step), then a flat level from the residual
// mean — trading
// TBATS's full state-space treatment for a deterministic, fast closed-form
// fit. harmonicCount sets how many harmonic pairs (k=1..harmonicCount) are
// fit per period, in the AutoTBATS style of searching a small harmonic
// budget rather than hardcoding the fundamental alone; values below 1 are
// treated as 1.
func FitTBATSReduced(ts series.TimeSeries, periods []int, harmonicCount int) (*TBATSReducedResult, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("tbats: at least one seasonal period required")
	}
	if harmonicCount < 1 {
		harmonicCount = 1
	}
	n := ts.Len()
	residual := append([]float64(nil), ts.Values...)
	coeffs := make(map[int][]float64)
	harmonics := make(map[int]int)

	for _, p := range periods {
		if p < 2 {
			return nil, fmt.Errorf("tbats: period must be >= 2, got %d", p)
		}
		k := harmonicCount
		if 2*k > p {
			// A harmonic above the Nyquist limit for this period is
			// unidentifiable; cap it.
			k = p / 2
		}
		harmonics[p] = k
		pairs := make([]float64, 0, 2*k)
		for j := 1; j <= k; j++ {
			a, b := fourierLeastSquares(residual, p, j)
			pairs = append(pairs, a, b)
			for i := 0; i < n; i++ {
				angle := 2 * math.Pi * float64(j) * float64(i) / float64(p)
				residual[i] -= a*math.Cos(angle) + b*math.Sin(angle)
			}
		}
		coeffs[p] = pairs
	}

	var level float64
	for _, v := range residual {
		level += v
	}
	level /= float64(n)

	resid := make([]float64, n)
	for i, v := range residual {
		resid[i] = v - level
	}

	return &TBATSReducedResult{Periods: periods, harmonics: harmonics, coeffs: coeffs, level: level, resid: resid, n: n, ts: ts}, nil
}

// fourierLeastSquares fits a single cos/sin pair at period p by
// closed-form projection (inner product against orthogonal basis
// functions over one or more complete cycles).
func fourierLeastSquares(values []float64, p, k int) (a, b float64) {
	n := len(values)
	var sumCos, sumSin, sumCosSq, sumSinSq float64
	for i, v := range values {
		angle := 2 * math.Pi * float64(k) * float64(i) / float64(p)
		c, s := math.Cos(angle), math.Sin(angle)
		sumCos += v * c
		sumSin += v * s
		sumCosSq += c * c
		sumSinSq += s * s
	}
	if sumCosSq > 0 {
		a = sumCos / sumCosSq
	}
	if sumSinSq > 0 {
		b = sumSin / sumSinSq
	}
	_ = n
	return a, b
}

// Forecast extrapolates the fitted level plus each period's fitted
// Fourier pair.
func (t *TBATSReducedResult) Forecast(h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("tbats: horizon must be positive")
	}
	timestamps, err := tsgen.Generate(t.ts, h)
	if err != nil {
		return result.Forecast{}, err
	}
	point := make([]float64, h)
	for i := 0; i < h; i++ {
		idx := t.n + i
		v := t.level
		for _, p := range t.Periods {
			c := t.coeffs[p]
			for j := 1; j <= t.harmonics[p]; j++ {
				angle := 2 * math.Pi * float64(j) * float64(idx) / float64(p)
				a, b := c[2*(j-1)], c[2*(j-1)+1]
				v += a*math.Cos(angle) + b*math.Sin(angle)
			}
		}
		point[i] = v
	}
	fc := result.Forecast{
		Model:           "TBATS(reduced)",
		Timestamps:      timestamps,
		Point:           point,
		ConfidenceLevel: confidenceLevel,
	}
	residualStdDev := interval.ResidualStdDev(t.resid)
	if err := interval.Apply(&fc, residualStdDev, false, interval.LinearGrowth); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}
