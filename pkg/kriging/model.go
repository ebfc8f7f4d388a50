package kriging

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
	"geokriging/pkg/geostat"
)

// Model is a kriging flavor: a correlation function plus the unbiasedness
// constraints it adds to the system. The set of flavors is closed: Simple,
// Ordinary, Universal and ExternalDrift.
type Model interface {
	// Function returns the spatial correlation function of the model.
	Function() geostat.Function

	// constraints returns the number C of constraint rows for k variables.
	constraints(k int) int

	// fillLHS writes rows and columns [n·k, n·k+C) of lhs for the given
	// sample geometries. The bottom-right C×C block is left untouched.
	fillLHS(lhs *mat.Dense, k int, geoms []geom.Geometry)

	// fillRHS writes rows [n·k, n·k+C) of rhs for target.
	fillRHS(rhs *mat.Dense, k, n int, target geom.Geometry)

	// offset returns the known mean of variable j, zero when the mean is
	// estimated.
	offset(j int) float64
}

// Simple kriging assumes a known mean.
type Simple struct {
	fn   geostat.Function
	mean []float64
}

// NewSimple returns a simple kriging model with the given mean. A single
// value is used for every variable; otherwise one value per variable is
// needed.
func NewSimple(fn geostat.Function, mean ...float64) (*Simple, error) {
	if len(mean) != 1 && len(mean) != fn.Arity() {
		return nil, fmt.Errorf("%w: got %d values for %d variables", ErrMeanLength, len(mean), fn.Arity())
	}
	m := make([]float64, len(mean))
	copy(m, mean)
	return &Simple{fn: fn, mean: m}, nil
}

func (s *Simple) Function() geostat.Function { return s.fn }

// Mean returns the mean of variable j.
func (s *Simple) Mean(j int) float64 { return s.offset(j) }

func (s *Simple) offset(j int) float64 {
	if len(s.mean) == 1 {
		return s.mean[0]
	}
	return s.mean[j]
}

func (s *Simple) constraints(int) int                         { return 0 }
func (s *Simple) fillLHS(*mat.Dense, int, []geom.Geometry)    {}
func (s *Simple) fillRHS(*mat.Dense, int, int, geom.Geometry) {}

// Ordinary kriging estimates a constant unknown mean per variable.
type Ordinary struct {
	fn geostat.Function
}

// NewOrdinary returns an ordinary kriging model.
func NewOrdinary(fn geostat.Function) *Ordinary {
	return &Ordinary{fn: fn}
}

func (o *Ordinary) Function() geostat.Function { return o.fn }
func (o *Ordinary) offset(int) float64         { return 0 }
func (o *Ordinary) constraints(k int) int      { return k }

func (o *Ordinary) fillLHS(lhs *mat.Dense, k int, geoms []geom.Geometry) {
	fillDriftLHS(lhs, k, geoms, ordinaryDrift)
}

func (o *Ordinary) fillRHS(rhs *mat.Dense, k, n int, target geom.Geometry) {
	fillDriftRHS(rhs, k, n, target, ordinaryDrift)
}

var ordinaryDrift = []Drift{Constant}

// Universal kriging models the mean as a linear combination of drift terms,
// either a polynomial basis or explicit functions.
type Universal struct {
	fn        geostat.Function
	drifts    []Drift
	exponents [][]int
}

// NewUniversal returns a universal kriging model with the polynomial drift
// basis of the given degree in dim dimensions.
func NewUniversal(fn geostat.Function, degree, dim int) (*Universal, error) {
	exps, err := MonomialExponents(degree, dim)
	if err != nil {
		return nil, err
	}
	drifts := make([]Drift, len(exps))
	for i, e := range exps {
		drifts[i] = Monomial(e...)
	}
	return &Universal{fn: fn, drifts: drifts, exponents: exps}, nil
}

// NewUniversalDrifts returns a universal kriging model with explicit drift
// functions, used in the given order.
func NewUniversalDrifts(fn geostat.Function, drifts ...Drift) (*Universal, error) {
	if len(drifts) == 0 {
		return nil, ErrNoDrift
	}
	d := make([]Drift, len(drifts))
	copy(d, drifts)
	return &Universal{fn: fn, drifts: d}, nil
}

func (u *Universal) Function() geostat.Function { return u.fn }
func (u *Universal) offset(int) float64         { return 0 }
func (u *Universal) constraints(k int) int      { return k * len(u.drifts) }

// Exponents returns the exponent tuples of a polynomial drift basis, in
// system order. It is nil when the model was built from explicit drifts.
func (u *Universal) Exponents() [][]int { return u.exponents }

func (u *Universal) fillLHS(lhs *mat.Dense, k int, geoms []geom.Geometry) {
	fillDriftLHS(lhs, k, geoms, u.drifts)
}

func (u *Universal) fillRHS(rhs *mat.Dense, k, n int, target geom.Geometry) {
	fillDriftRHS(rhs, k, n, target, u.drifts)
}

// ExternalDrift kriging uses external covariates as drift terms.
type ExternalDrift struct {
	fn     geostat.Function
	drifts []Drift
}

// NewExternalDrift returns an external drift kriging model.
func NewExternalDrift(fn geostat.Function, drifts ...Drift) (*ExternalDrift, error) {
	if len(drifts) == 0 {
		return nil, ErrNoDrift
	}
	d := make([]Drift, len(drifts))
	copy(d, drifts)
	return &ExternalDrift{fn: fn, drifts: d}, nil
}

func (e *ExternalDrift) Function() geostat.Function { return e.fn }
func (e *ExternalDrift) offset(int) float64         { return 0 }
func (e *ExternalDrift) constraints(k int) int      { return k * len(e.drifts) }

func (e *ExternalDrift) fillLHS(lhs *mat.Dense, k int, geoms []geom.Geometry) {
	fillDriftLHS(lhs, k, geoms, e.drifts)
}

func (e *ExternalDrift) fillRHS(rhs *mat.Dense, k, n int, target geom.Geometry) {
	fillDriftRHS(rhs, k, n, target, e.drifts)
}
