package geostat

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// Structure is one nested term of a linear model of coregionalization: a
// univariate variogram and its K×K coregionalization matrix.
type Structure struct {
	Variogram Function
	Coef      *mat.SymDense
}

// Coregionalization is the linear model of coregionalization
//
//	Γ(h) = Σ_s B_s γ_s(h)
//
// for K co-located variables. Every B_s must be symmetric positive
// semi-definite.
type Coregionalization struct {
	structs    []Structure
	k          int
	stationary bool
}

// NewCoregionalization validates structs and returns the model.
func NewCoregionalization(structs ...Structure) (*Coregionalization, error) {
	if len(structs) == 0 {
		return nil, fmt.Errorf("%w: coregionalization needs at least one structure", ErrInvalidParameter)
	}
	k := structs[0].Coef.SymmetricDim()
	stationary := true
	for i, s := range structs {
		if s.Variogram.Arity() != 1 || s.Variogram.Kind() != Variogram {
			return nil, fmt.Errorf("%w: structure %d is not a univariate variogram", ErrInvalidParameter, i)
		}
		if s.Coef.SymmetricDim() != k {
			return nil, fmt.Errorf("%w: structure %d has a %d×%d matrix, want %d×%d", ErrInvalidParameter, i, s.Coef.SymmetricDim(), s.Coef.SymmetricDim(), k, k)
		}
		if !semiDefinite(s.Coef) {
			return nil, fmt.Errorf("%w: coregionalization matrix %d is not positive semi-definite", ErrInvalidParameter, i)
		}
		stationary = stationary && s.Variogram.Stationary()
	}
	return &Coregionalization{structs: structs, k: k, stationary: stationary}, nil
}

func semiDefinite(b *mat.SymDense) bool {
	var eig mat.EigenSym
	if !eig.Factorize(b, false) {
		return false
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-12 {
			return false
		}
	}
	return true
}

func (c *Coregionalization) Kind() Kind       { return Variogram }
func (c *Coregionalization) Arity() int       { return c.k }
func (c *Coregionalization) Stationary() bool { return c.stationary }
func (c *Coregionalization) Symmetric() bool  { return true }

// Sill returns Σ_s B_s·sill_s, or nil when a structure has no sill.
func (c *Coregionalization) Sill() *mat.Dense {
	if !c.stationary {
		return nil
	}
	sill := mat.NewDense(c.k, c.k, nil)
	var term mat.Dense
	for _, s := range c.structs {
		term.Scale(s.Variogram.Sill().At(0, 0), s.Coef)
		sill.Add(sill, &term)
	}
	return sill
}

func (c *Coregionalization) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	dst.Zero()
	one := mat.NewDense(1, 1, nil)
	for _, s := range c.structs {
		s.Variogram.EvalTo(one, g1, g2)
		gamma := one.At(0, 0)
		for i := 0; i < c.k; i++ {
			for j := 0; j < c.k; j++ {
				dst.Set(i, j, dst.At(i, j)+gamma*s.Coef.At(i, j))
			}
		}
	}
}
