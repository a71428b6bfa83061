// Package optimize wraps gonum's Nelder-Mead and L-BFGS methods behind a
// bound-projected interface suited to fitting smoothing-parameter vectors:
// callers never see a raised panic from an infeasible step, only a
// Result with a Feasible flag to inspect.
package optimize

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Bounds is a per-parameter [Min, Max] box constraint.
type Bounds struct {
	Min, Max []float64
}

// project clamps x onto the box defined by b in place and returns it.
func (b Bounds) project(x []float64) []float64 {
	for i := range x {
		if i < len(b.Min) && x[i] < b.Min[i] {
			x[i] = b.Min[i]
		}
		if i < len(b.Max) && x[i] > b.Max[i] {
			x[i] = b.Max[i]
		}
	}
	return x
}

// Result carries the outcome of a single optimization run.
type Result struct {
	X        []float64
	F        float64
	Feasible bool
	Iterations int
}

// Method selects the underlying gonum algorithm.
type Method int

const (
	NelderMead Method = iota
	LBFGS
)

// boundedProblem wraps an objective so any point gonum evaluates is first
// projected onto the bounds; this keeps fitted smoothing parameters inside
// their admissible region without the caller having to penalize manually.
type boundedProblem struct {
	objective func([]float64) float64
	bounds    Bounds
}

func (p boundedProblem) Func(x []float64) float64 {
	xp := append([]float64(nil), x...)
	p.bounds.project(xp)
	return p.objective(xp)
}

// Grad fills dst with a central-difference numerical gradient of the
// projected objective at x. L-BFGS needs a gradient and the smoothing-
// parameter objectives here have no closed-form derivative, so central
// differences stand in, the same numerical-gradient fallback gonum's own
// examples use when an analytic Grad isn't available.
func (p boundedProblem) Grad(dst, x []float64) {
	const h = 1e-6
	xp := append([]float64(nil), x...)
	p.bounds.project(xp)
	for i := range dst {
		orig := xp[i]
		xp[i] = orig + h
		fPlus := p.objective(xp)
		xp[i] = orig - h
		fMinus := p.objective(xp)
		xp[i] = orig
		dst[i] = (fPlus - fMinus) / (2 * h)
	}
}

// Minimize runs the chosen method starting from x0, subject to bounds.
// The objective is expected to return +Inf for infeasible/undefined
// points (e.g. a singular likelihood); Minimize treats any resulting
// NaN/Inf final value as Feasible == false rather than erroring.
func Minimize(objective func([]float64) float64, x0 []float64, bounds Bounds, method Method) Result {
	x0p := append([]float64(nil), x0...)
	bounds.project(x0p)

	prob := boundedProblem{objective: objective, bounds: bounds}
	p := optimize.Problem{Func: prob.Func}

	var m optimize.Method
	switch method {
	case LBFGS:
		p.Grad = prob.Grad
		m = &optimize.LBFGS{}
	default:
		m = &optimize.NelderMead{}
	}

	res, err := optimize.Minimize(p, x0p, &optimize.Settings{
		MajorIterations: 500,
	}, m)
	if err != nil || res == nil {
		return Result{X: x0p, F: math.Inf(1), Feasible: false}
	}

	x := append([]float64(nil), res.X...)
	bounds.project(x)
	f := res.F
	feasible := !math.IsNaN(f) && !math.IsInf(f, 0)
	return Result{X: x, F: f, Feasible: feasible, Iterations: res.Stats.MajorIterations}
}

// GridSearch evaluates objective over the cartesian product of candidate
// values per dimension and returns the best feasible point found; used as
// a robust fallback/seed generator before a local refinement pass, the
// same two-phase approach the teacher's HoltWinters grid search used
// before any local polish.
func GridSearch(objective func([]float64) float64, candidates [][]float64) Result {
	best := Result{F: math.Inf(1), Feasible: false}
	var rec func(prefix []float64, dim int)
	rec = func(prefix []float64, dim int) {
		if dim == len(candidates) {
			x := append([]float64(nil), prefix...)
			f := objective(x)
			if !math.IsNaN(f) && !math.IsInf(f, 0) && f < best.F {
				best = Result{X: x, F: f, Feasible: true}
			}
			return
		}
		for _, v := range candidates[dim] {
			rec(append(prefix, v), dim+1)
		}
	}
	rec(nil, 0)
	return best
}
