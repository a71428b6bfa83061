// Package autoets enumerates ETS(error,trend,seasonal) variants, fits each
// one, and selects the best by AICc (lower is better), with ties broken
// by preferring the simpler model (fewer free parameters), then additive
// over multiplicative, matching the teacher's "prefer simplest explanation"
// switch-default style seen in cmd/forecaster/models/model.go.
package autoets

import (
	"fmt"
	"math"

	"github.com/kedastral/forecastcore/pkg/forecast/ets"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
)

// Options controls the search space.
type Options struct {
	Period          int  // 0 disables seasonal candidates
	AllowMultiplicative bool
	EarlyStopAICc   float64 // if > 0, stop scanning once a model beats this AICc
}

// Result is the winning fit plus every candidate considered, for
// diagnostics.
type Result struct {
	Best       *ets.Fitted
	Candidates []*ets.Fitted
}

func candidateConfigs(opts Options) []ets.Config {
	var errors = []ets.ErrorType{ets.ErrorAdditive}
	var seasonals = []ets.SeasonalType{ets.SeasonalNone}
	if opts.AllowMultiplicative {
		errors = append(errors, ets.ErrorMultiplicative)
	}
	if opts.Period >= 2 {
		seasonals = append(seasonals, ets.SeasonalAdditive)
		if opts.AllowMultiplicative {
			seasonals = append(seasonals, ets.SeasonalMultiplicative)
		}
	}
	trends := []ets.TrendType{ets.TrendNone, ets.TrendAdditive, ets.TrendAdditiveDamped}
	if opts.AllowMultiplicative {
		trends = append(trends, ets.TrendMultiplicative, ets.TrendMultiplicativeDamped)
	}

	var out []ets.Config
	for _, e := range errors {
		for _, tr := range trends {
			for _, s := range seasonals {
				out = append(out, ets.Config{Error: e, Trend: tr, Seasonal: s, Period: opts.Period})
			}
		}
	}
	return out
}

// Select fits every admissible candidate and returns the AICc-best.
func Select(ts series.TimeSeries, opts Options) (*Result, error) {
	candidates := candidateConfigs(opts)
	var fits []*ets.Fitted
	var lastErr error

	for _, cfg := range candidates {
		if (cfg.Error == ets.ErrorMultiplicative || cfg.Seasonal == ets.SeasonalMultiplicative) && !ts.AllPositive() {
			continue
		}
		f, err := ets.Fit(ts, cfg)
		if err != nil {
			lastErr = err
			continue
		}
		fits = append(fits, f)
		if opts.EarlyStopAICc > 0 && f.AICc <= opts.EarlyStopAICc {
			break
		}
	}

	if len(fits) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("autoets: no candidate converged, last error: %w", lastErr)
		}
		return nil, fmt.Errorf("autoets: no candidates evaluated")
	}

	best := fits[0]
	for _, f := range fits[1:] {
		if betterFit(f, best) {
			best = f
		}
	}
	return &Result{Best: best, Candidates: fits}, nil
}

// betterFit reports whether candidate should replace current as the best
// fit, breaking AICc ties by preferring fewer parameters and additive
// components over multiplicative.
func betterFit(candidate, current *ets.Fitted) bool {
	if math.Abs(candidate.AICc-current.AICc) > 1e-12 {
		return candidate.AICc < current.AICc
	}
	cp := numFreeParams(candidate)
	bp := numFreeParams(current)
	if cp != bp {
		return cp < bp
	}
	return lexLess(rank(candidate.Config), rank(current.Config))
}

func numFreeParams(f *ets.Fitted) int {
	n := 1
	if f.Config.Trend != ets.TrendNone {
		n += 2
	}
	if isDamped(f.Config.Trend) {
		n++
	}
	if f.Config.Seasonal != ets.SeasonalNone {
		n += 1 + f.Config.Period
	}
	return n
}

func isDamped(t ets.TrendType) bool {
	return t == ets.TrendAdditiveDamped || t == ets.TrendMultiplicativeDamped
}

// rank returns a (error, trend, seasonal) ordinal tuple, each axis ordered
// simplest/additive-first, for lexicographic tie-breaking: error beats
// trend beats seasonal, matching the priority a forecaster would use when
// picking between equally-likely explanations.
func rank(cfg ets.Config) [3]int {
	errRank := 0
	if cfg.Error == ets.ErrorMultiplicative {
		errRank = 1
	}
	var trendRank int
	switch cfg.Trend {
	case ets.TrendNone:
		trendRank = 0
	case ets.TrendAdditive:
		trendRank = 1
	case ets.TrendAdditiveDamped:
		trendRank = 2
	case ets.TrendMultiplicative:
		trendRank = 3
	case ets.TrendMultiplicativeDamped:
		trendRank = 4
	}
	seasonRank := 0
	switch cfg.Seasonal {
	case ets.SeasonalNone:
		seasonRank = 0
	case ets.SeasonalAdditive:
		seasonRank = 1
	case ets.SeasonalMultiplicative:
		seasonRank = 2
	}
	return [3]int{errRank, trendRank, seasonRank}
}

// lexLess compares two rank tuples lexicographically: the first axis that
// differs decides.
func lexLess(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Forecast runs the winning model's forecast.
func (r *Result) Forecast(ts series.TimeSeries, h int, confidenceLevel float64) (result.Forecast, error) {
	return r.Best.Forecast(ts, h, confidenceLevel)
}
