// Package ets implements the state-space exponential smoothing family
// ETS(error, trend, seasonal): error/trend/seasonal each additive,
// multiplicative, damped-trend, or none, fit by maximum likelihood via
// pkg/forecast/optimize.
package ets

import (
	"fmt"
	"math"

	"github.com/kedastral/forecastcore/pkg/forecast/interval"
	"github.com/kedastral/forecastcore/pkg/forecast/optimize"
	"github.com/kedastral/forecastcore/pkg/forecast/result"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
	"github.com/kedastral/forecastcore/pkg/forecast/tsgen"
)

// ErrorType, TrendType and SeasonalType enumerate the component forms.
type ErrorType int
type TrendType int
type SeasonalType int

const (
	ErrorAdditive ErrorType = iota
	ErrorMultiplicative
)

const (
	TrendNone TrendType = iota
	TrendAdditive
	TrendAdditiveDamped
	TrendMultiplicative
	TrendMultiplicativeDamped
)

// isMultiplicativeTrend reports whether the trend combines with the level
// as a ratio (level * trend^phi) rather than a sum (level + phi*trend).
func isMultiplicativeTrend(t TrendType) bool {
	return t == TrendMultiplicative || t == TrendMultiplicativeDamped
}

// isDampedTrend reports whether phi < 1 damps the trend's long-run
// contribution, additive or multiplicative alike.
func isDampedTrend(t TrendType) bool {
	return t == TrendAdditiveDamped || t == TrendMultiplicativeDamped
}

const (
	SeasonalNone SeasonalType = iota
	SeasonalAdditive
	SeasonalMultiplicative
)

// Config names one ETS variant and its seasonal period.
type Config struct {
	Error    ErrorType
	Trend    TrendType
	Seasonal SeasonalType
	Period   int // ignored when Seasonal == SeasonalNone
}

// Name renders the config as the conventional ETS(E,T,S) tag.
func (c Config) Name() string {
	e := "A"
	if c.Error == ErrorMultiplicative {
		e = "M"
	}
	tr := "N"
	switch c.Trend {
	case TrendAdditive:
		tr = "A"
	case TrendAdditiveDamped:
		tr = "Ad"
	case TrendMultiplicative:
		tr = "M"
	case TrendMultiplicativeDamped:
		tr = "Md"
	}
	s := "N"
	switch c.Seasonal {
	case SeasonalAdditive:
		s = "A"
	case SeasonalMultiplicative:
		s = "M"
	}
	return fmt.Sprintf("ETS(%s,%s,%s)", e, tr, s)
}

// Params holds fitted smoothing parameters and initial state.
type Params struct {
	Alpha, Beta, Gamma, Phi float64
	Level0, Trend0          float64
	Season0                 []float64 // length Period, only used when seasonal != none
}

// Fitted is a fitted ETS model ready to forecast.
type Fitted struct {
	Config  Config
	Params  Params
	Sigma2  float64 // innovation variance
	LogLik  float64
	AIC, BIC, AICc float64
	Fitted  []float64
	Resid   []float64
	level, trend float64
	season  []float64 // per-phase seasonal state, slot t % Period holds the phase of observation t
	n       int
}

// numParams returns the count of free smoothing + initial-state
// parameters, used for AIC/BIC/AICc.
func (c Config) numParams() int {
	n := 1 // alpha
	if c.Trend != TrendNone {
		n += 2 // beta, trend0
	}
	if isDampedTrend(c.Trend) {
		n++ // phi
	}
	if c.Seasonal != SeasonalNone {
		n += 1 + c.Period // gamma + seasonal initial states
	}
	n++ // level0
	return n
}

// admissible enforces the standard ETS parameter region plus the
// trend/seasonal admissibility inequality gamma <= 1 + 1/phi - alpha
// (phi = 1 for undamped trend).
func admissible(c Config, p Params) bool {
	if p.Alpha <= 0 || p.Alpha >= 1 {
		return false
	}
	phi := 1.0
	if isDampedTrend(c.Trend) {
		phi = p.Phi
		if phi <= 0.8 || phi > 1.0 {
			return false
		}
	}
	if c.Trend != TrendNone {
		if p.Beta <= 0 || p.Beta >= p.Alpha {
			return false
		}
	}
	if c.Seasonal != SeasonalNone {
		// The naive gamma < 1-alpha bound ignores phi's damping effect on
		// the admissible seasonal region; the correct upper bound widens
		// as phi shrinks below 1.
		gammaUpper := 1 + 1/phi - p.Alpha
		if p.Gamma <= 0 || p.Gamma > gammaUpper {
			return false
		}
	}
	return true
}

// Fit estimates Config's smoothing parameters and initial state from ts
// by maximizing the (approximate Gaussian) likelihood: a coarse grid over
// the smoothing parameters picks the seed, L-BFGS refines it, and
// Nelder-Mead from the same seed is used when L-BFGS ends infeasible. It
// then runs one final filtering pass to produce fitted values and
// residuals.
func Fit(ts series.TimeSeries, cfg Config) (*Fitted, error) {
	if cfg.Seasonal != SeasonalNone && cfg.Period < 2 {
		return nil, fmt.Errorf("ets: seasonal period must be >= 2")
	}
	if cfg.Seasonal != SeasonalNone && ts.Len() < 2*cfg.Period {
		return nil, fmt.Errorf("ets: need at least 2 full seasonal cycles, have %d points for period %d", ts.Len(), cfg.Period)
	}
	if (cfg.Error == ErrorMultiplicative || cfg.Seasonal == SeasonalMultiplicative) && !ts.AllPositive() {
		return nil, fmt.Errorf("ets: multiplicative error/seasonal requires strictly positive observations")
	}

	x0, lo, hi := initialGuess(ts, cfg)

	objective := func(x []float64) float64 {
		p, ok := unpack(cfg, x)
		if !ok || !admissible(cfg, p) {
			return math.Inf(1)
		}
		ll, _, _, ok := filter(ts.Values, cfg, p)
		if !ok {
			return math.Inf(1)
		}
		return -ll
	}

	seed := gridSeed(cfg, x0, objective)

	res := optimize.Minimize(objective, seed, optimize.Bounds{Min: lo, Max: hi}, optimize.LBFGS)
	if !res.Feasible {
		// L-BFGS's numerical gradient can misbehave right at a bound or at
		// a kink in the admissible region; Nelder-Mead doesn't need a
		// gradient and is the documented fallback for those cases.
		res = optimize.Minimize(objective, seed, optimize.Bounds{Min: lo, Max: hi}, optimize.NelderMead)
	}
	if !res.Feasible {
		return nil, fmt.Errorf("ets: optimizer failed to find a feasible fit for %s", cfg.Name())
	}
	p, ok := unpack(cfg, res.X)
	if !ok || !admissible(cfg, p) {
		return nil, fmt.Errorf("ets: fitted parameters outside admissible region for %s", cfg.Name())
	}

	ll, fitted, resid, ok := filter(ts.Values, cfg, p)
	if !ok {
		return nil, fmt.Errorf("ets: final filter pass failed for %s", cfg.Name())
	}

	n := float64(ts.Len())
	k := float64(cfg.numParams())
	sigma2 := sumSq(resid) / n
	aic := -2*ll + 2*k
	bic := -2*ll + k*math.Log(n)
	aicc := aic
	if n-k-1 > 0 {
		aicc += (2 * k * (k + 1)) / (n - k - 1)
	} else {
		aicc = math.Inf(1)
	}

	f := &Fitted{
		Config: cfg,
		Params: p,
		Sigma2: sigma2,
		LogLik: ll,
		AIC:    aic,
		BIC:    bic,
		AICc:   aicc,
		Fitted: fitted,
		Resid:  resid,
		n:      ts.Len(),
	}
	// Re-run the filter once more to capture terminal state for forecasting.
	f.level, f.trend, f.season = terminalState(ts.Values, cfg, p)
	return f, nil
}

func sumSq(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}

// initialGuess builds a starting vector and box bounds matching the
// parameter layout used by pack/unpack.
func initialGuess(ts series.TimeSeries, cfg Config) (x0, lo, hi []float64) {
	mean := ts.Mean()
	x0 = append(x0, 0.3)
	lo = append(lo, 1e-4)
	hi = append(hi, 0.999)
	if cfg.Trend != TrendNone {
		if isMultiplicativeTrend(cfg.Trend) {
			// trend0 is a growth ratio centered at 1 (no growth), bounded
			// well away from 0 to keep level*trend^phi finite and signed.
			x0 = append(x0, 0.1, 1.0)
			lo = append(lo, 1e-4, 0.01)
			hi = append(hi, 0.29, 2.0)
		} else {
			x0 = append(x0, 0.1, mean*0.01)
			lo = append(lo, 1e-4, -math.Abs(mean))
			hi = append(hi, 0.29, math.Abs(mean))
		}
	}
	if isDampedTrend(cfg.Trend) {
		x0 = append(x0, 0.98)
		lo = append(lo, 0.8)
		hi = append(hi, 1.0)
	}
	if cfg.Seasonal != SeasonalNone {
		x0 = append(x0, 0.1)
		lo = append(lo, 1e-4)
		hi = append(hi, 0.29)
		for i := 0; i < cfg.Period; i++ {
			init := 0.0
			if cfg.Seasonal == SeasonalMultiplicative {
				init = 1.0
			}
			x0 = append(x0, init)
			if cfg.Seasonal == SeasonalMultiplicative {
				lo = append(lo, 0.1)
				hi = append(hi, 2.0)
			} else {
				lo = append(lo, -math.Abs(mean))
				hi = append(hi, math.Abs(mean))
			}
		}
	}
	x0 = append(x0, mean)
	lo = append(lo, -math.Abs(mean)*10-1)
	hi = append(hi, math.Abs(mean)*10+1)
	return x0, lo, hi
}

// gridSeed runs a coarse grid search over the smoothing-parameter
// dimensions (alpha, beta, phi, gamma), holding every other dimension at
// its x0 value, and returns a refined starting vector for the local
// optimizer. The grid only covers smoothing parameters, not the full
// state vector (trend0/season0/level0), since a full-dimension grid is
// combinatorially infeasible once a seasonal period enters the layout.
func gridSeed(cfg Config, x0 []float64, objective func([]float64) float64) []float64 {
	idx := 0
	alphaIdx := idx
	idx++
	betaIdx := -1
	if cfg.Trend != TrendNone {
		betaIdx = idx
		idx += 2 // beta, trend0
	}
	phiIdx := -1
	if isDampedTrend(cfg.Trend) {
		phiIdx = idx
		idx++
	}
	gammaIdx := -1
	if cfg.Seasonal != SeasonalNone {
		gammaIdx = idx
	}

	type dim struct {
		index      int
		candidates []float64
	}
	dims := []dim{{alphaIdx, []float64{0.1, 0.3, 0.5, 0.7, 0.9}}}
	if betaIdx >= 0 {
		dims = append(dims, dim{betaIdx, []float64{0.02, 0.1, 0.2}})
	}
	if phiIdx >= 0 {
		dims = append(dims, dim{phiIdx, []float64{0.8, 0.9, 0.98}})
	}
	if gammaIdx >= 0 {
		dims = append(dims, dim{gammaIdx, []float64{0.02, 0.1, 0.2}})
	}

	candidates := make([][]float64, len(dims))
	for i, d := range dims {
		candidates[i] = d.candidates
	}

	reducedObjective := func(reduced []float64) float64 {
		x := append([]float64(nil), x0...)
		for i, d := range dims {
			x[d.index] = reduced[i]
		}
		return objective(x)
	}

	best := optimize.GridSearch(reducedObjective, candidates)
	seed := append([]float64(nil), x0...)
	if best.Feasible {
		for i, d := range dims {
			seed[d.index] = best.X[i]
		}
	}
	return seed
}

// unpack maps an optimizer vector to Params in the same order initialGuess
// lays them out: alpha, [beta, trend0], [phi], [gamma, season0...], level0.
func unpack(cfg Config, x []float64) (Params, bool) {
	i := 0
	next := func() (float64, bool) {
		if i >= len(x) {
			return 0, false
		}
		v := x[i]
		i++
		return v, true
	}
	p := Params{Phi: 1.0}
	var ok bool
	if p.Alpha, ok = next(); !ok {
		return p, false
	}
	if cfg.Trend != TrendNone {
		if p.Beta, ok = next(); !ok {
			return p, false
		}
		if p.Trend0, ok = next(); !ok {
			return p, false
		}
	}
	if isDampedTrend(cfg.Trend) {
		if p.Phi, ok = next(); !ok {
			return p, false
		}
	}
	if cfg.Seasonal != SeasonalNone {
		if p.Gamma, ok = next(); !ok {
			return p, false
		}
		p.Season0 = make([]float64, cfg.Period)
		for j := range p.Season0 {
			if p.Season0[j], ok = next(); !ok {
				return p, false
			}
		}
	}
	if p.Level0, ok = next(); !ok {
		return p, false
	}
	return p, true
}

// filter runs the ETS recursion over values and returns the
// Gaussian-approximation log-likelihood, fitted values, and residuals.
func filter(values []float64, cfg Config, p Params) (logLik float64, fitted, resid []float64, ok bool) {
	n := len(values)
	fitted = make([]float64, n)
	resid = make([]float64, n)

	level := p.Level0
	trend := p.Trend0
	var season []float64
	if cfg.Seasonal != SeasonalNone {
		season = append([]float64(nil), p.Season0...)
	}
	phi := p.Phi
	if !isDampedTrend(cfg.Trend) {
		phi = 1.0
	}
	multTrend := isMultiplicativeTrend(cfg.Trend)

	var sse float64
	for t := 0; t < n; t++ {
		var seasonVal float64
		seasonIdx := 0
		if cfg.Seasonal != SeasonalNone {
			seasonIdx = t % cfg.Period
			seasonVal = season[seasonIdx]
		}

		trendTerm := phi * trend
		trendFactor := math.Pow(trend, phi)
		levelBase := level + trendTerm
		if multTrend {
			levelBase = level * trendFactor
		}

		var yhat float64
		switch {
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalNone:
			yhat = level
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalAdditive:
			yhat = level + seasonVal
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalMultiplicative:
			yhat = level * seasonVal
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalNone:
			yhat = levelBase
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalAdditive:
			yhat = levelBase + seasonVal
		default: // trend + multiplicative seasonal
			yhat = levelBase * seasonVal
		}

		if math.IsNaN(yhat) || math.IsInf(yhat, 0) {
			return 0, nil, nil, false
		}
		fitted[t] = yhat

		var e float64
		if cfg.Error == ErrorAdditive {
			e = values[t] - yhat
		} else {
			if yhat == 0 {
				return 0, nil, nil, false
			}
			e = (values[t] - yhat) / yhat
		}
		resid[t] = e
		sse += e * e

		// State update.
		var levelInnovation, trendInnovation, seasonInnovation float64
		if cfg.Error == ErrorAdditive {
			levelInnovation = e
			trendInnovation = e
			seasonInnovation = e
		} else {
			levelInnovation = e * yhat
			trendInnovation = e * yhat
			seasonInnovation = e * yhat
		}

		oldLevel := level
		switch cfg.Seasonal {
		case SeasonalNone, SeasonalAdditive:
			level = levelBase + p.Alpha*levelInnovation
		case SeasonalMultiplicative:
			if seasonVal == 0 {
				return 0, nil, nil, false
			}
			level = levelBase + p.Alpha*(levelInnovation/seasonVal)
		}

		if cfg.Trend != TrendNone {
			if multTrend {
				if oldLevel == 0 {
					return 0, nil, nil, false
				}
				trend = trendFactor + p.Beta*(trendInnovation/oldLevel)
			} else {
				trend = phi*trend + p.Beta*trendInnovation
			}
		}

		if cfg.Seasonal != SeasonalNone {
			switch cfg.Seasonal {
			case SeasonalAdditive:
				season[seasonIdx] = seasonVal + p.Gamma*seasonInnovation
			case SeasonalMultiplicative:
				if levelBase == 0 {
					return 0, nil, nil, false
				}
				season[seasonIdx] = seasonVal + p.Gamma*(seasonInnovation/levelBase)
			}
		}
	}

	n64 := float64(n)
	sigma2 := sse / n64
	if sigma2 <= 0 {
		return 0, nil, nil, false
	}
	ll := -0.5*n64*math.Log(2*math.Pi*sigma2) - sse/(2*sigma2)
	if cfg.Error == ErrorMultiplicative {
		for _, y := range values {
			if y <= 0 {
				return 0, nil, nil, false
			}
			ll -= math.Log(math.Abs(y))
		}
	}
	return ll, fitted, resid, true
}

// terminalState re-runs the filter and returns the final level/trend/season
// state, used as the seed for Forecast.
func terminalState(values []float64, cfg Config, p Params) (level, trend float64, season []float64) {
	level = p.Level0
	trend = p.Trend0
	if cfg.Seasonal != SeasonalNone {
		season = append([]float64(nil), p.Season0...)
	}
	phi := p.Phi
	if !isDampedTrend(cfg.Trend) {
		phi = 1.0
	}
	multTrend := isMultiplicativeTrend(cfg.Trend)
	for t, y := range values {
		var seasonVal float64
		seasonIdx := 0
		if cfg.Seasonal != SeasonalNone {
			seasonIdx = t % cfg.Period
			seasonVal = season[seasonIdx]
		}
		trendTerm := phi * trend
		trendFactor := math.Pow(trend, phi)
		levelBase := level + trendTerm
		if multTrend {
			levelBase = level * trendFactor
		}
		var yhat float64
		switch {
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalNone:
			yhat = level
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalAdditive:
			yhat = level + seasonVal
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalMultiplicative:
			yhat = level * seasonVal
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalNone:
			yhat = levelBase
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalAdditive:
			yhat = levelBase + seasonVal
		default:
			yhat = levelBase * seasonVal
		}
		var e float64
		if cfg.Error == ErrorAdditive {
			e = y - yhat
		} else if yhat != 0 {
			e = (y - yhat) / yhat
		}
		var levelInnovation, trendInnovation, seasonInnovation float64
		if cfg.Error == ErrorAdditive {
			levelInnovation, trendInnovation, seasonInnovation = e, e, e
		} else {
			levelInnovation, trendInnovation, seasonInnovation = e*yhat, e*yhat, e*yhat
		}
		oldLevel := level
		switch cfg.Seasonal {
		case SeasonalNone, SeasonalAdditive:
			level = levelBase + p.Alpha*levelInnovation
		case SeasonalMultiplicative:
			if seasonVal != 0 {
				level = levelBase + p.Alpha*(levelInnovation/seasonVal)
			}
		}
		if cfg.Trend != TrendNone {
			if multTrend {
				if oldLevel != 0 {
					trend = trendFactor + p.Beta*(trendInnovation/oldLevel)
				}
			} else {
				trend = phi*trend + p.Beta*trendInnovation
			}
		}
		if cfg.Seasonal == SeasonalAdditive {
			season[seasonIdx] = seasonVal + p.Gamma*seasonInnovation
		} else if cfg.Seasonal == SeasonalMultiplicative && levelBase != 0 {
			season[seasonIdx] = seasonVal + p.Gamma*(seasonInnovation/levelBase)
		}
	}
	return level, trend, season
}

// Forecast produces h-step-ahead point forecasts plus prediction
// intervals at confidenceLevel, timestamped by tsgen from the series'
// detected step.
func (f *Fitted) Forecast(ts series.TimeSeries, h int, confidenceLevel float64) (result.Forecast, error) {
	if h <= 0 {
		return result.Forecast{}, fmt.Errorf("ets: horizon must be positive")
	}
	timestamps, err := tsgen.Generate(ts, h)
	if err != nil {
		return result.Forecast{}, err
	}

	cfg := f.Config
	p := f.Params
	phi := p.Phi
	if !isDampedTrend(cfg.Trend) {
		phi = 1.0
	}
	multTrend := isMultiplicativeTrend(cfg.Trend)

	point := make([]float64, h)
	for i := 1; i <= h; i++ {
		dampedSum := 0.0
		if cfg.Trend != TrendNone {
			if isDampedTrend(cfg.Trend) {
				for j := 1; j <= i; j++ {
					dampedSum += math.Pow(phi, float64(j))
				}
			} else {
				dampedSum = float64(i)
			}
		}
		levelBase := f.level + dampedSum*f.trend
		if multTrend {
			levelBase = f.level * math.Pow(f.trend, dampedSum)
		}
		var seasonVal float64
		if cfg.Seasonal != SeasonalNone {
			idx := (f.n + i - 1) % cfg.Period
			seasonVal = f.season[idx]
		}
		switch {
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalNone:
			point[i-1] = f.level
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalAdditive:
			point[i-1] = f.level + seasonVal
		case cfg.Trend == TrendNone && cfg.Seasonal == SeasonalMultiplicative:
			point[i-1] = f.level * seasonVal
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalNone:
			point[i-1] = levelBase
		case cfg.Trend != TrendNone && cfg.Seasonal == SeasonalAdditive:
			point[i-1] = levelBase + seasonVal
		default:
			point[i-1] = levelBase * seasonVal
		}
	}

	fc := result.Forecast{
		Model:           cfg.Name(),
		Timestamps:      timestamps,
		Point:           point,
		ConfidenceLevel: confidenceLevel,
		Fitted:          f.Fitted,
		AIC:             f.AIC,
		BIC:             f.BIC,
		AICc:            f.AICc,
		HasInformationCriteria: true,
	}
	residualStdDev := interval.ResidualStdDev(f.Resid)
	if err := interval.Apply(&fc, residualStdDev, cfg.Error == ErrorMultiplicative, etsVarianceGrowth(cfg, p)); err != nil {
		return result.Forecast{}, err
	}
	return fc, nil
}

// etsVarianceGrowth selects the multi-step prediction-variance growth law
// for the fitted trend/seasonal combination. The none and additive-trend
// forms are the standard ETS(A,N,N)/ETS(A,A,N) closed-form variance
// multipliers; the damped form adds the geometric correction terms from
// the damped-trend state-space recursion. Multiplicative trend or seasonal
// interactions have no tractable closed form here, so they fall back to
// linear growth.
func etsVarianceGrowth(cfg Config, p Params) interval.VarianceGrowth {
	if isMultiplicativeTrend(cfg.Trend) || cfg.Seasonal == SeasonalMultiplicative {
		return interval.LinearGrowth
	}
	alpha := p.Alpha
	switch cfg.Trend {
	case TrendNone:
		return func(h int) float64 {
			if h <= 1 {
				return 1
			}
			return 1 + alpha*alpha*float64(h-1)
		}
	case TrendAdditive:
		beta := p.Beta
		return func(h int) float64 {
			if h <= 1 {
				return 1
			}
			hf := float64(h)
			return 1 + (hf-1)*(alpha*alpha+alpha*beta*hf+(beta*beta*hf*(2*hf-1))/6)
		}
	case TrendAdditiveDamped:
		beta := p.Beta
		phi := p.Phi
		return func(h int) float64 {
			if h <= 1 {
				return 1
			}
			hf := float64(h)
			if math.Abs(1-phi) < 1e-6 {
				return 1 + (hf-1)*(alpha*alpha+alpha*beta*hf+(beta*beta*hf*(2*hf-1))/6)
			}
			term1 := alpha * alpha * (hf - 1)
			term2 := (beta * phi * hf / math.Pow(1-phi, 2)) * (2*alpha*(1-phi) + beta*phi)
			term3 := (beta * phi * (1 - math.Pow(phi, hf)) / (math.Pow(1-phi, 2) * (1 - phi*phi))) *
				(2*alpha*(1-phi*phi) + beta*phi*(1+2*phi-math.Pow(phi, hf)))
			return 1 + term1 + term2 - term3
		}
	default:
		return interval.LinearGrowth
	}
}
