// Package seasonal implements SeasonalES, SeasonalESOptimized, and
// SeasonalWindowAverage: purely seasonal smoothing without a trend
// component, for series whose level is stable but whose seasonal shape
// should adapt over time. The window-average variant is grounded on the
// teacher's BaselineModel.computeSeasonalPattern bucket-averaging idiom.
package seasonal

import (
	"fmt"
	"math"

	"github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/optimize"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// Fitted is the shared output for seasonal models.
type Fitted struct {
	ModelName string
	Fitted    []float64
	n         int
	period    int
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
		Fitted:          f.Fitted,
	}
	resid := make([]float64, len(ts.Values))
	for i, v := range ts.Values {
		resid[i] = v - f.Fitted[i]
	}
	residualStdDev := interval.ResidualStdDev(resid)
	if err := interval.Apply(&fc, residualStdDev, false, interval.LinearGrowth); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}

func validate(ts series.TimeSeries, period int, name string) error {
	if period < 2 {
		return fmt.Errorf("%s: period must be >= 2", name)
	}
	if ts.Len() < 2*period {
		return fmt.Errorf("%s: need at least 2 full seasonal cycles, have %d points for period %d", name, ts.Len(), period)
	}
	return nil
}

// seasonalESFilter smooths a level-free additive seasonal buffer:
// season[t%period] = season[t%period] + gamma*(value - season[t%period]).
func seasonalESFilter(values []float64, period int, gamma float64) (fitted []float64, season []float64) {
	season = make([]float64, period)
	for i := 0; i < period; i++ {
		season[i] = values[i]
	}
	fitted = make([]float64, len(values))
	for t, v := range values {
		idx := t % period
		fitted[t] = season[idx]
		season[idx] = season[idx] + gamma*(v-season[idx])
	}
	return fitted, season
}

// SeasonalES fits with a fixed gamma.
func SeasonalES(ts series.TimeSeries, period int, gamma float64) (*Fitted, error) {
	if err := validate(ts, period, "seasonal_es"); err != nil {
		return nil, err
	}
	if gamma <= 0 || gamma >= 1 {
		return nil, fmt.Errorf("seasonal_es: gamma must be in (0,1)")
	}
	fitted, season := seasonalESFilter(ts.Values, period, gamma)
	n := ts.Len()
	return &Fitted{
		ModelName: "seasonal_es", Fitted: fitted, n: n, period: period,
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := 0; i < h; i++ {
				out[i] = season[(n+i)%period]
			}
			return out
		},
	}, nil
}

// SeasonalESOptimized chooses gamma by minimizing in-sample SSE.
func SeasonalESOptimized(ts series.TimeSeries, period int) (*Fitted, error) {
	if err := validate(ts, period, "seasonal_es_optimized"); err != nil {
		return nil, err
	}
	objective := func(x []float64) float64 {
		g := x[0]
		if g <= 0 || g >= 1 {
			return math.Inf(1)
		}
		fitted, _ := seasonalESFilter(ts.Values, period, g)
		var sse float64
		for i, v := range ts.Values {
			d := v - fitted[i]
			sse += d * d
		}
		return sse
	}
	res := optimize.Minimize(objective, []float64{0.3}, optimize.Bounds{Min: []float64{1e-4}, Max: []float64{0.999}}, optimize.NelderMead)
	gamma := 0.3
	if res.Feasible {
		gamma = res.X[0]
	}
	fitted, season := seasonalESFilter(ts.Values, period, gamma)
	n := ts.Len()
	return &Fitted{
		ModelName: "seasonal_es_optimized", Fitted: fitted, n: n, period: period,
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := 0; i < h; i++ {
				out[i] = season[(n+i)%period]
			}
			return out
		},
	}, nil
}

// SeasonalWindowAverage forecasts each seasonal phase as the plain
// average of its last windowCycles observed occurrences, the same
// bucket-averaging the teacher's computeSeasonalPattern performs per
// minute-of-hour/hour-of-day bucket.
func SeasonalWindowAverage(ts series.TimeSeries, period, windowCycles int) (*Fitted, error) {
	if err := validate(ts, period, "seasonal_window_average"); err != nil {
		return nil, err
	}
	if windowCycles < 1 {
		return nil, fmt.Errorf("seasonal_window_average: windowCycles must be >= 1")
	}
	n := ts.Len()
	phaseAvg := make([]float64, period)
	for phase := 0; phase < period; phase++ {
		lastIdx := -1
		for i := n - 1; i >= 0; i-- {
			if i%period == phase {
				lastIdx = i
				break
			}
		}
		var sum float64
		count := 0
		for i := lastIdx; i >= 0 && count < windowCycles; i -= period {
			sum += ts.Values[i]
			count++
		}
		if count > 0 {
			phaseAvg[phase] = sum / float64(count)
		}
	}
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = phaseAvg[i%period]
	}
	return &Fitted{
		ModelName: "seasonal_window_average", Fitted: fitted, n: n, period: period,
		forecast: func(h int) []float64 {
			out := make([]float64, h)
			for i := 0; i < h; i++ {
				out[i] = phaseAvg[(n+i)%period]
			}
			return out
		},
	}, nil
}
