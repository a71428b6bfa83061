// Package registry is the model factory: case-insensitive name lookup
// against a constant-initialized table of model entries, each carrying
// its recognized parameter schema, defaults, and minimum-history rule.
// Grounded on the teacher's 2-entry switch in cmd/forecaster/models/model.go
// and the name-keyed construction in pkg/adapters/factory.go, generalized
// from a 2-way switch to a data-driven table per the redesign direction
// ("global registry state -> per-module pure table").
package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kedastral/forecastcore/pkg/forecast"
	"github.com/kedastral/forecastcore/pkg/forecast/arima"
	"github.com/kedastral/forecastcore/pkg/forecast/autoets"
	"github.com/kedastral/forecastcore/pkg/forecast/baseline"
	"github.com/kedastral/forecastcore/pkg/forecast/ets"
	"github.com/kedastral/forecastcore/pkg/forecast/intermittent"
	"github.com/kedastral/forecastcore/pkg/forecast/multiseasonal"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/seasonal"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/theta"
)

// Kind tags the scalar type held by a Value, a closed union standing in
// for the teacher's map[string]any (pkg/models/byom.go's byomRequest,
// pkg/adapters/adapter.go's Row) so the registry can validate parameter
// types without reflection.
type Kind int

const (
	KindFloat64 Kind = iota
	KindInt
	KindBool
	KindFloat64Slice
)

// Value is a tagged scalar or list, the unit of a Params map.
type Value struct {
	Kind         Kind
	Float64      float64
	Int          int
	Bool         bool
	Float64Slice []float64
}

func F(v float64) Value         { return Value{Kind: KindFloat64, Float64: v} }
func I(v int) Value             { return Value{Kind: KindInt, Int: v} }
func B(v bool) Value            { return Value{Kind: KindBool, Bool: v} }
func FS(v []float64) Value      { return Value{Kind: KindFloat64Slice, Float64Slice: v} }

// Params is the host-supplied parameter map: string key to tagged value.
type Params map[string]Value

func (p Params) float64(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if v.Kind != KindFloat64 {
		return 0, fmt.Errorf("registry: parameter %q must be a float64", key)
	}
	return v.Float64, nil
}

func (p Params) intVal(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if v.Kind != KindInt {
		return 0, fmt.Errorf("registry: parameter %q must be an int", key)
	}
	return v.Int, nil
}

func (p Params) boolVal(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if v.Kind != KindBool {
		return false, fmt.Errorf("registry: parameter %q must be a bool", key)
	}
	return v.Bool, nil
}

func (p Params) float64Slice(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("registry: missing required parameter %q", key)
	}
	if v.Kind != KindFloat64Slice {
		return nil, fmt.Errorf("registry: parameter %q must be a float64 list", key)
	}
	return v.Float64Slice, nil
}

// validateKeys rejects any key in p not present in recognized, the
// "unknown keys raise a validation failure" contract.
func validateKeys(p Params, recognized ...string) error {
	allowed := make(map[string]bool, len(recognized))
	for _, k := range recognized {
		allowed[k] = true
	}
	for k := range p {
		if !allowed[k] {
			return fmt.Errorf("registry: unrecognized parameter %q", k)
		}
	}
	return nil
}

func toIntPeriods(fs []float64) []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out
}

// forecastFunc is produced by a fitted model instance; it closes over
// whatever state the underlying family needs (ts, level, coefficients).
type forecastFunc func(h int, confidenceLevel float64) (result.Forecast, error)

// fitFunc fits a model against ts, returning its forecast closure and
// in-sample fitted values (nil if the family doesn't expose them).
type fitFunc func(ts series.TimeSeries) (forecastFunc, []float64, error)

// buildFunc validates params/seasonalPeriod and produces a fitFunc,
// deferring the actual model fit until the instance sees a series.
type buildFunc func(params Params, seasonalPeriod int) (fitFunc, error)

// Instance is the host-facing ModelInstance: fit once, predict many
// times, optionally inspect in-sample fitted values.
type Instance struct {
	name      string
	minLength int
	fit       fitFunc
	forecast  forecastFunc
	insample  []float64
	fitted    bool
}

// Fit trains the instance against ts.
func (in *Instance) Fit(ts series.TimeSeries) error {
	if ts.Len() < in.minLength {
		return forecast.New(forecast.InsufficientData,
			fmt.Sprintf("%s requires at least %d observations, got %d", in.name, in.minLength, ts.Len()))
	}
	for i, v := range ts.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return forecast.New(forecast.NonFiniteObservation,
				fmt.Sprintf("%s: non-finite observation at index %d", in.name, i))
		}
	}
	fc, insample, err := in.fit(ts)
	if err != nil {
		return forecast.Wrap(forecast.ModelFitFailed, fmt.Sprintf("%s: fit failed", in.name), err)
	}
	in.forecast = fc
	in.insample = insample
	in.fitted = true
	return nil
}

// Predict produces an h-step-ahead forecast at confidenceLevel.
func (in *Instance) Predict(h int, confidenceLevel float64) (result.Forecast, error) {
	if !in.fitted {
		return result.Forecast{}, forecast.New(forecast.PredictBeforeFit,
			fmt.Sprintf("%s: call Fit before Predict", in.name))
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		return result.Forecast{}, forecast.New(forecast.InvalidParameter,
			fmt.Sprintf("%s: confidence_level must be in the open interval (0,1), got %v", in.name, confidenceLevel))
	}
	fc, err := in.forecast(h, confidenceLevel)
	if err != nil {
		return result.Forecast{}, err
	}
	fc.Model = in.name
	return fc, nil
}

// InSample returns in-sample fitted values, or nil unless returnInsample
// is set — the spec's "empty unless requested" contract.
func (in *Instance) InSample(returnInsample bool) []float64 {
	if !returnInsample {
		return nil
	}
	return in.insample
}

type entry struct {
	name      string
	aliases   []string
	minLength int
	build     buildFunc
}

var table = buildTable()
var byName = indexTable(table)

func indexTable(entries []entry) map[string]*entry {
	idx := make(map[string]*entry, len(entries)*2)
	for i := range entries {
		e := &entries[i]
		idx[strings.ToLower(e.name)] = e
		for _, a := range e.aliases {
			idx[strings.ToLower(a)] = e
		}
	}
	return idx
}

// Names returns every registered canonical model name, sorted, for
// discovery/help output.
func Names() []string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.name
	}
	sort.Strings(names)
	return names
}

// Create performs case-insensitive name lookup, validates params against
// the model's schema, and returns an unfitted ModelInstance.
func Create(modelName string, params Params, seasonalPeriod int) (*Instance, error) {
	e, ok := byName[strings.ToLower(strings.TrimSpace(modelName))]
	if !ok {
		return nil, forecast.New(forecast.InvalidParameter, fmt.Sprintf("unknown model %q", modelName))
	}
	fit, err := e.build(params, seasonalPeriod)
	if err != nil {
		return nil, forecast.Wrap(forecast.InvalidParameter, fmt.Sprintf("%s: invalid parameters", e.name), err)
	}
	return &Instance{name: e.name, minLength: e.minLength, fit: fit}, nil
}

func buildTable() []entry {
	return []entry{
		{name: "Naive", minLength: 1, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.Naive(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SeasonalNaive", aliases: []string{"seasonal_naive"}, minLength: 2, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			if period < 1 {
				return nil, fmt.Errorf("seasonal_period must be >= 1")
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.SeasonalNaive(ts, period)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "RandomWalkDrift", aliases: []string{"rwdrift", "drift"}, minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.RandomWalkDrift(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SMA", minLength: 1, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "window"); err != nil {
				return nil, err
			}
			window, err := p.intVal("window", 3)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.SMA(ts, window)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SES", minLength: 1, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "alpha"); err != nil {
				return nil, err
			}
			alpha, err := p.float64("alpha", 0.3)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.SES(ts, alpha)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SESOptimized", aliases: []string{"ses_optimized"}, minLength: 1, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := baseline.SESOptimized(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "CrostonClassic", aliases: []string{"croston"}, minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "alpha"); err != nil {
				return nil, err
			}
			alpha, err := p.float64("alpha", 0.1)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.CrostonClassic(ts, alpha)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "CrostonSBA", minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "alpha"); err != nil {
				return nil, err
			}
			alpha, err := p.float64("alpha", 0.1)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.CrostonSBA(ts, alpha)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "CrostonOptimized", minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.CrostonOptimized(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "ADIDA", minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.ADIDA(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "IMAPA", minLength: 4, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p); err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.IMAPA(ts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "TSB", minLength: 2, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "alpha_d", "alpha_p"); err != nil {
				return nil, err
			}
			alphaD, err := p.float64("alpha_d", 0.1)
			if err != nil {
				return nil, err
			}
			alphaP, err := p.float64("alpha_p", 0.1)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := intermittent.TSB(ts, alphaD, alphaP)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "SeasonalES", aliases: []string{"seasonal_es"}, minLength: 4, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period", "gamma"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			gamma, err := p.float64("gamma", 0.3)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := seasonal.SeasonalES(ts, period, gamma)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SeasonalESOptimized", minLength: 4, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := seasonal.SeasonalESOptimized(ts, period)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "SeasonalWindowAverage", minLength: 4, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period", "window_cycles"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			windowCycles, err := p.intVal("window_cycles", 2)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := seasonal.SeasonalWindowAverage(ts, period, windowCycles)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "ETS", minLength: 2, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period", "error", "trend", "seasonal"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			errCode, err := p.intVal("error", 0)
			if err != nil {
				return nil, err
			}
			trendCode, err := p.intVal("trend", 0)
			if err != nil {
				return nil, err
			}
			seasonalCode, err := p.intVal("seasonal", 0)
			if err != nil {
				return nil, err
			}
			cfg := ets.Config{
				Error:    ets.ErrorType(errCode),
				Trend:    ets.TrendType(trendCode),
				Seasonal: ets.SeasonalType(seasonalCode),
				Period:   period,
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				f, err := ets.Fit(ts, cfg)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return f.Forecast(ts, h, cl) }, f.Fitted, nil
			}, nil
		}},
		{name: "AutoETS", minLength: 2, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_period", "allow_multiplicative"); err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			allowMult, err := p.boolVal("allow_multiplicative", true)
			if err != nil {
				return nil, err
			}
			opts := autoets.Options{Period: period, AllowMultiplicative: allowMult}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				r, err := autoets.Select(ts, opts)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return r.Forecast(ts, h, cl) }, r.Best.Fitted, nil
			}, nil
		}},
		{name: "Theta", minLength: 2, build: thetaBuilder(theta.Standard)},
		{name: "ThetaOptimized", minLength: 2, build: thetaBuilder(theta.Optimized)},
		{name: "DynamicTheta", minLength: 2, build: thetaBuilder(theta.Dynamic)},
		{name: "DynamicThetaOptimized", minLength: 2, build: thetaBuilder(theta.DynamicOptimized)},
		{name: "MSTL", minLength: 4, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_periods"); err != nil {
				return nil, err
			}
			periodsF, err := p.float64Slice("seasonal_periods")
			if err != nil {
				return nil, err
			}
			periods := toIntPeriods(periodsF)
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				m, err := multiseasonal.Fit(ts, periods)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return m.Forecast(h, cl) }, m.TrendRemainder, nil
			}, nil
		}},
		{name: "MFLES", minLength: 4, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_periods", "alpha"); err != nil {
				return nil, err
			}
			periodsF, err := p.float64Slice("seasonal_periods")
			if err != nil {
				return nil, err
			}
			alpha, err := p.float64("alpha", 0.3)
			if err != nil {
				return nil, err
			}
			periods := toIntPeriods(periodsF)
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				m, err := multiseasonal.FitMFLES(ts, periods, alpha)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return m.Forecast(h, cl) }, m.TrendRemainder, nil
			}, nil
		}},
		{name: "TBATS", minLength: 4, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "seasonal_periods", "harmonics"); err != nil {
				return nil, err
			}
			periodsF, err := p.float64Slice("seasonal_periods")
			if err != nil {
				return nil, err
			}
			harmonics, err := p.intVal("harmonics", 1)
			if err != nil {
				return nil, err
			}
			periods := toIntPeriods(periodsF)
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				m, err := multiseasonal.FitTBATSReduced(ts, periods, harmonics)
				if err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return m.Forecast(h, cl) }, nil, nil
			}, nil
		}},
		{name: "ARIMA", minLength: 20, build: func(p Params, _ int) (fitFunc, error) {
			if err := validateKeys(p, "p", "d", "q"); err != nil {
				return nil, err
			}
			pp, err := p.intVal("p", 1)
			if err != nil {
				return nil, err
			}
			dd, err := p.intVal("d", 1)
			if err != nil {
				return nil, err
			}
			qq, err := p.intVal("q", 1)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				m := arima.New(pp, dd, qq)
				if err := m.Fit(ts); err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return m.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
		{name: "SARIMA", minLength: 20, build: func(p Params, seasonalPeriod int) (fitFunc, error) {
			if err := validateKeys(p, "p", "d", "q", "seasonal_p", "seasonal_d", "seasonal_q", "seasonal_period"); err != nil {
				return nil, err
			}
			pp, err := p.intVal("p", 1)
			if err != nil {
				return nil, err
			}
			dd, err := p.intVal("d", 1)
			if err != nil {
				return nil, err
			}
			qq, err := p.intVal("q", 1)
			if err != nil {
				return nil, err
			}
			spP, err := p.intVal("seasonal_p", 0)
			if err != nil {
				return nil, err
			}
			spD, err := p.intVal("seasonal_d", 0)
			if err != nil {
				return nil, err
			}
			spQ, err := p.intVal("seasonal_q", 0)
			if err != nil {
				return nil, err
			}
			period, err := p.intVal("seasonal_period", seasonalPeriod)
			if err != nil {
				return nil, err
			}
			return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
				m := arima.NewSeasonal(pp, dd, qq, spP, spD, spQ, period)
				if err := m.Fit(ts); err != nil {
					return nil, nil, err
				}
				return func(h int, cl float64) (result.Forecast, error) { return m.Forecast(ts, h, cl) }, nil, nil
			}, nil
		}},
	}
}

func thetaBuilder(variant theta.Variant) buildFunc {
	return func(p Params, seasonalPeriod int) (fitFunc, error) {
		if err := validateKeys(p, "seasonal_period"); err != nil {
			return nil, err
		}
		period, err := p.intVal("seasonal_period", seasonalPeriod)
		if err != nil {
			return nil, err
		}
		cfg := theta.Config{Variant: variant, Period: period}
		return func(ts series.TimeSeries) (forecastFunc, []float64, error) {
			st, err := theta.Fit(ts, cfg)
			if err != nil {
				return nil, nil, err
			}
			return func(h int, cl float64) (result.Forecast, error) { return st.Forecast(ts, h, cl) }, st.Fitted, nil
		}, nil
	}
}
