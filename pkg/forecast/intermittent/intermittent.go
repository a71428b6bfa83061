// Package intermittent implements demand forecasting for sparse series:
// the Croston family (Classic/Optimized/SBA), ADIDA, IMAPA, and TSB. The
// Croston variants maintain a smoothed-demand scalar and a
// smoothed-interval scalar updated only on non-zero periods, and TSB a
// smoothed demand and a smoothed probability updated every period — the
// same "two parallel smoothed series combined at predict time" shape as
// the teacher's BaselineModel minute/hour seasonal buffers. ADIDA and IMAPA
// work on temporally aggregated buckets instead.
package intermittent

import (
	"fmt"
	"math"

	predinterval "github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/optimize"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// Fitted is the shared output shape for every intermittent model.
type Fitted struct {
	ModelName string
	level     float64
	resid     []float64
	forecast  func(h int) []float64
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
	}
	residualStdDev := predinterval.ResidualStdDev(f.resid)
	if err := predinterval.Apply(&fc, residualStdDev, false, predinterval.LinearGrowth); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}

// residualsAgainstRate compares every observation against the model's flat
// forecast rate, the only point of comparison available once the rate has
// collapsed the series to a single scalar.
func residualsAgainstRate(values []float64, rate float64) []float64 {
	resid := make([]float64, len(values))
	for i, v := range values {
		resid[i] = v - rate
	}
	return resid
}

func validateNonNegative(ts series.TimeSeries, name string) error {
	for _, v := range ts.Values {
		if v < 0 {
			return fmt.Errorf("%s: demand series must be non-negative", name)
		}
	}
	return nil
}

// crostonCore runs the classic Croston recursion: on non-zero demand
// periods, update smoothed demand size and smoothed inter-demand interval;
// returns the final smoothed demand, interval, and count of non-zero
// periods seen.
func crostonCore(values []float64, alpha float64) (demand, interval float64, nonZero int) {
	sinceLast := 0
	initialized := false
	for _, v := range values {
		sinceLast++
		if v > 0 {
			nonZero++
			if !initialized {
				demand = v
				interval = float64(sinceLast)
				initialized = true
			} else {
				demand = alpha*v + (1-alpha)*demand
				interval = alpha*float64(sinceLast) + (1-alpha)*interval
			}
			sinceLast = 0
		}
	}
	return demand, interval, nonZero
}

func flatForecast(rate float64) func(int) []float64 {
	return func(h int) []float64 {
		out := make([]float64, h)
		for i := range out {
			out[i] = rate
		}
		return out
	}
}

// CrostonClassic forecasts a flat rate = smoothed demand / smoothed interval.
func CrostonClassic(ts series.TimeSeries, alpha float64) (*Fitted, error) {
	if err := validateNonNegative(ts, "croston_classic"); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("croston_classic: alpha must be in (0,1)")
	}
	demand, interval, nonZero := crostonCore(ts.Values, alpha)
	if nonZero == 0 {
		return &Fitted{ModelName: "croston_classic", forecast: flatForecast(0), resid: residualsAgainstRate(ts.Values, 0)}, nil
	}
	rate := demand / interval
	return &Fitted{ModelName: "croston_classic", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}

// CrostonSBA applies the Syntetos-Boylan bias-correction factor
// (1 - alpha/2) to the classic Croston rate.
func CrostonSBA(ts series.TimeSeries, alpha float64) (*Fitted, error) {
	if err := validateNonNegative(ts, "croston_sba"); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("croston_sba: alpha must be in (0,1)")
	}
	demand, interval, nonZero := crostonCore(ts.Values, alpha)
	if nonZero == 0 {
		return &Fitted{ModelName: "croston_sba", forecast: flatForecast(0), resid: residualsAgainstRate(ts.Values, 0)}, nil
	}
	rate := (1 - alpha/2) * (demand / interval)
	return &Fitted{ModelName: "croston_sba", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}

// CrostonOptimized chooses alpha by minimizing the squared difference
// between the final Croston rate (smoothed demand / smoothed interval) and
// the mean of the whole series; per-period one-step-ahead errors are not
// used.
func CrostonOptimized(ts series.TimeSeries) (*Fitted, error) {
	if err := validateNonNegative(ts, "croston_optimized"); err != nil {
		return nil, err
	}
	objective := func(x []float64) float64 {
		a := x[0]
		if a <= 0 || a >= 1 {
			return math.Inf(1)
		}
		demand, interval, nonZero := crostonCore(ts.Values, a)
		if nonZero == 0 || interval == 0 {
			return math.Inf(1)
		}
		rate := demand / interval
		mean := ts.Mean()
		return (rate - mean) * (rate - mean)
	}
	res := optimize.Minimize(objective, []float64{0.1}, optimize.Bounds{Min: []float64{1e-4}, Max: []float64{0.999}}, optimize.NelderMead)
	alpha := 0.1
	if res.Feasible {
		alpha = res.X[0]
	}
	demand, interval, nonZero := crostonCore(ts.Values, alpha)
	if nonZero == 0 {
		return &Fitted{ModelName: "croston_optimized", forecast: flatForecast(0), resid: residualsAgainstRate(ts.Values, 0)}, nil
	}
	rate := demand / interval
	return &Fitted{ModelName: "croston_optimized", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}

// ADIDA aggregates the series into non-overlapping buckets sized to the
// average non-zero inter-demand interval, smooths the aggregate with
// simple exponential smoothing (alpha 0.1), then disaggregates the rate
// back to the original frequency.
func ADIDA(ts series.TimeSeries) (*Fitted, error) {
	if err := validateNonNegative(ts, "adida"); err != nil {
		return nil, err
	}
	_, interval, nonZero := crostonCore(ts.Values, 0.1)
	bucket := int(math.Round(interval))
	if nonZero == 0 || bucket < 1 {
		bucket = 1
	}
	aggregated := aggregateSum(ts.Values, bucket)
	if len(aggregated) == 0 {
		return &Fitted{ModelName: "adida", forecast: flatForecast(0), resid: residualsAgainstRate(ts.Values, 0)}, nil
	}
	aggRate := aggregated[0]
	for _, v := range aggregated[1:] {
		aggRate = 0.1*v + 0.9*aggRate
	}
	rate := aggRate / float64(bucket)
	return &Fitted{ModelName: "adida", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}

func aggregateSum(values []float64, bucket int) []float64 {
	if bucket < 1 {
		bucket = 1
	}
	var out []float64
	for i := 0; i < len(values); i += bucket {
		end := i + bucket
		if end > len(values) {
			end = len(values)
		}
		var s float64
		for _, v := range values[i:end] {
			s += v
		}
		out = append(out, s)
	}
	return out
}

// IMAPA averages ADIDA-style aggregate rates across multiple aggregation
// levels (1, 2, 4, and the Croston-implied interval), reducing sensitivity
// to any single bucket size choice.
func IMAPA(ts series.TimeSeries) (*Fitted, error) {
	if err := validateNonNegative(ts, "imapa"); err != nil {
		return nil, err
	}
	_, interval, _ := crostonCore(ts.Values, 0.1)
	buckets := map[int]bool{1: true, 2: true, 4: true}
	if b := int(math.Round(interval)); b >= 1 {
		buckets[b] = true
	}
	var rates []float64
	for b := range buckets {
		if b < 1 || b > len(ts.Values) {
			continue
		}
		agg := aggregateSum(ts.Values, b)
		if len(agg) == 0 {
			continue
		}
		var s float64
		for _, v := range agg {
			s += v
		}
		rates = append(rates, (s/float64(len(agg)))/float64(b))
	}
	if len(rates) == 0 {
		return &Fitted{ModelName: "imapa", forecast: flatForecast(0), resid: residualsAgainstRate(ts.Values, 0)}, nil
	}
	var sum float64
	for _, r := range rates {
		sum += r
	}
	rate := sum / float64(len(rates))
	return &Fitted{ModelName: "imapa", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}

// TSB (Teunter-Syntetos-Babai) smooths demand probability and demand size
// separately every period (not just on non-zero periods), unlike Croston.
func TSB(ts series.TimeSeries, alphaD, alphaP float64) (*Fitted, error) {
	if err := validateNonNegative(ts, "tsb"); err != nil {
		return nil, err
	}
	if alphaD <= 0 || alphaD >= 1 || alphaP <= 0 || alphaP >= 1 {
		return nil, fmt.Errorf("tsb: alphaD and alphaP must be in (0,1)")
	}
	values := ts.Values
	var demand float64
	var prob float64
	initialized := false
	for _, v := range values {
		occurred := 0.0
		if v > 0 {
			occurred = 1.0
		}
		if !initialized {
			if v > 0 {
				demand = v
				prob = 1
				initialized = true
			}
			continue
		}
		prob = alphaP*occurred + (1-alphaP)*prob
		if v > 0 {
			demand = alphaD*v + (1-alphaD)*demand
		}
	}
	rate := prob * demand
	return &Fitted{ModelName: "tsb", level: rate, forecast: flatForecast(rate), resid: residualsAgainstRate(ts.Values, rate)}, nil
}
