package kriging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
)

// covarianceJitter is added to the diagonal of predictive covariances
// before they are handed to a multivariate normal.
const covarianceJitter = 1e-10

// workspace holds the per-call buffers of a prediction, sized for the
// capacity of the fitted model.
type workspace struct {
	rhs *mat.Dense
	sol *mat.Dense
	blk *mat.Dense
}

// Weights are the solution of the kriging system for one target.
type Weights struct {
	// Lambda holds the n·k×k sample weights. Column j gives the weights of
	// every (sample, variable) pair in the estimate of variable j.
	Lambda *mat.Dense

	// Nu holds the c×k Lagrange multipliers. It is nil for simple kriging.
	Nu *mat.Dense

	// RHS is the right-hand side the weights were solved from.
	RHS *mat.Dense
}

// Weights solves the system for target g.
func (f *Fitted) Weights(g geom.Geometry) (*Weights, error) {
	target, err := f.target(g)
	if err != nil {
		return nil, err
	}
	ws := f.pool.Get().(*workspace)
	defer f.pool.Put(ws)

	rhs, sol := f.solve(ws, target)
	nk := f.n * f.k
	w := &Weights{
		Lambda: mat.DenseCopyOf(sol.Slice(0, nk, 0, f.k)),
		RHS:    mat.DenseCopyOf(rhs),
	}
	if f.c > 0 {
		w.Nu = mat.DenseCopyOf(sol.Slice(nk, nk+f.c, 0, f.k))
	}
	return w, nil
}

// Predict returns the estimated mean of variable name at g.
func (f *Fitted) Predict(name string, g geom.Geometry) (float64, error) {
	mean, err := f.PredictMulti([]string{name}, g)
	if err != nil {
		return math.NaN(), err
	}
	return mean[0], nil
}

// PredictMulti returns the estimated means of the named variables at g.
func (f *Fitted) PredictMulti(names []string, g geom.Geometry) ([]float64, error) {
	idx, err := f.lookup(names)
	if err != nil {
		return nil, err
	}
	target, err := f.target(g)
	if err != nil {
		return nil, err
	}
	ws := f.pool.Get().(*workspace)
	defer f.pool.Put(ws)

	_, sol := f.solve(ws, target)
	return f.mean(sol, idx), nil
}

// MeanVariance returns the estimated means of the named variables at g and
// their predictive covariance.
func (f *Fitted) MeanVariance(names []string, g geom.Geometry) ([]float64, *mat.SymDense, error) {
	idx, err := f.lookup(names)
	if err != nil {
		return nil, nil, err
	}
	target, err := f.target(g)
	if err != nil {
		return nil, nil, err
	}
	ws := f.pool.Get().(*workspace)
	defer f.pool.Put(ws)

	rhs, sol := f.solve(ws, target)
	mean := f.mean(sol, idx)
	full := f.variance(ws, rhs, sol, target)

	cov := mat.NewSymDense(len(idx), nil)
	for a, i := range idx {
		for b := a; b < len(idx); b++ {
			cov.SetSym(a, b, full.At(i, idx[b]))
		}
	}
	return mean, cov, nil
}

// PredictProb returns the predictive normal distribution of variable name
// at g.
func (f *Fitted) PredictProb(name string, g geom.Geometry) (distuv.Normal, error) {
	mean, cov, err := f.MeanVariance([]string{name}, g)
	if err != nil {
		return distuv.Normal{}, err
	}
	return distuv.Normal{Mu: mean[0], Sigma: math.Sqrt(cov.At(0, 0))}, nil
}

// PredictProbMulti returns the joint predictive normal distribution of the
// named variables at g.
func (f *Fitted) PredictProbMulti(names []string, g geom.Geometry) (*distmv.Normal, error) {
	mean, cov, err := f.MeanVariance(names, g)
	if err != nil {
		return nil, err
	}
	for i := 0; i < cov.SymmetricDim(); i++ {
		cov.SetSym(i, i, cov.At(i, i)+covarianceJitter)
	}
	dist, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, ErrNotPositiveDefinite
	}
	return dist, nil
}

func (f *Fitted) lookup(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := f.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}
		idx[i] = j
	}
	return idx, nil
}

// target moves g into the coordinate reference system of the table when it
// carries its own.
func (f *Fitted) target(g geom.Geometry) (geom.Geometry, error) {
	ref, ok := g.(*geom.Referenced)
	if !ok {
		return g, nil
	}
	crs := f.table.CRS()
	if ref.CRS == "" || crs == "" || ref.CRS == crs {
		return ref.Geometry, nil
	}
	return f.reproj.Transform(ref.Geometry, ref.CRS, crs)
}

// solve fills the right-hand side for target and solves the system. The
// returned matrices are views of ws. The split between weights and
// multipliers is at n·k.
func (f *Fitted) solve(ws *workspace, target geom.Geometry) (rhs, sol *mat.Dense) {
	k := f.k
	m := f.n*k + f.c

	rhs = ws.rhs.Slice(0, m, 0, k).(*mat.Dense)
	rhs.Zero()
	geostat.Against(rhs, f.fn, f.geoms, target)
	if f.convert {
		toCovariance(rhs, f.sill, f.n, 1, k)
	}
	f.model.fillRHS(rhs, k, f.n, target)
	for _, p := range f.miss {
		for j := 0; j < k; j++ {
			rhs.Set(p, j, 0)
		}
	}

	sol = ws.sol.Slice(0, m, 0, k).(*mat.Dense)
	f.fact.SolveTo(sol, rhs)
	return rhs, sol
}

// mean computes Σ_p λ[p,j]·(z[p] − μ_p) + μ_j for each requested variable
// j. Missing samples are skipped.
func (f *Fitted) mean(sol *mat.Dense, idx []int) []float64 {
	out := make([]float64, len(idx))
	for a, j := range idx {
		s := 0.0
		for p, z := range f.values {
			if math.IsNaN(z) {
				continue
			}
			s += sol.At(p, j) * (z - f.model.offset(p%f.k))
		}
		out[a] = s + f.model.offset(j)
	}
	return out
}

// variance returns the k×k predictive covariance at target.
func (f *Fitted) variance(ws *workspace, rhs, sol *mat.Dense, target geom.Geometry) *mat.Dense {
	k := f.k
	nk := f.n * k

	var sum mat.Dense
	sum.Mul(rhs.Slice(0, nk, 0, k).T(), sol.Slice(0, nk, 0, k))
	if f.c > 0 {
		var nu mat.Dense
		nu.Mul(rhs.Slice(nk, nk+f.c, 0, k).T(), sol.Slice(nk, nk+f.c, 0, k))
		sum.Add(&sum, &nu)
	}

	c0 := ws.blk
	f.fn.EvalTo(c0, target, target)

	sigma := mat.NewDense(k, k, nil)
	switch {
	case f.convert:
		// C₀ = sill − γ(g₀, g₀) carries the change of support.
		sigma.Sub(f.sill, c0)
		sigma.Sub(sigma, &sum)
	case f.covForm:
		sigma.Sub(c0, &sum)
	default:
		sigma.Sub(&sum, c0)
	}

	// Only variances are clamped; cross-covariances may be negative.
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			v := (sigma.At(i, j) + sigma.At(j, i)) / 2
			sigma.Set(i, j, v)
			sigma.Set(j, i, v)
		}
		if sigma.At(i, i) < 0 {
			sigma.Set(i, i, 0)
		}
	}
	return sigma
}
