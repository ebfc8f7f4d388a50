package geostat

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// CovarianceFunction is the covariance dual of a stationary variogram,
// C = sill − γ.
type CovarianceFunction struct {
	v    Function
	sill *mat.Dense
}

// NewCovariance returns the covariance of the stationary variogram v.
func NewCovariance(v Function) (*CovarianceFunction, error) {
	if v.Kind() != Variogram || !v.Stationary() {
		return nil, fmt.Errorf("%w: covariance needs a stationary variogram, got %s", ErrInvalidParameter, v.Kind())
	}
	return &CovarianceFunction{v: v, sill: v.Sill()}, nil
}

func (c *CovarianceFunction) Kind() Kind       { return Covariance }
func (c *CovarianceFunction) Arity() int       { return c.v.Arity() }
func (c *CovarianceFunction) Stationary() bool { return true }
func (c *CovarianceFunction) Symmetric() bool  { return c.v.Symmetric() }

func (c *CovarianceFunction) Sill() *mat.Dense {
	return mat.DenseCopyOf(c.sill)
}

func (c *CovarianceFunction) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	c.v.EvalTo(dst, g1, g2)
	dst.Sub(c.sill, dst)
}
