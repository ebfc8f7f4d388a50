package geostat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// PowerVariogram is the non-stationary variogram
//
//	γ(h) = scaling·h^exponent + nugget,  h > 0
//
// with 0 < exponent < 2. It has no sill, so systems built on it stay in
// variogram form.
type PowerVariogram struct {
	scaling  float64
	exponent float64
	nugget   float64
}

// NewPower returns a power variogram.
func NewPower(scaling, exponent, nugget float64) (*PowerVariogram, error) {
	if scaling <= 0 {
		return nil, fmt.Errorf("%w: power scaling must be positive, got %g", ErrInvalidParameter, scaling)
	}
	if exponent <= 0 || exponent >= 2 {
		return nil, fmt.Errorf("%w: power exponent must be in (0, 2), got %g", ErrInvalidParameter, exponent)
	}
	if nugget < 0 {
		return nil, fmt.Errorf("%w: nugget must not be negative, got %g", ErrInvalidParameter, nugget)
	}
	return &PowerVariogram{scaling: scaling, exponent: exponent, nugget: nugget}, nil
}

func (v *PowerVariogram) Kind() Kind       { return Variogram }
func (v *PowerVariogram) Arity() int       { return 1 }
func (v *PowerVariogram) Stationary() bool { return false }
func (v *PowerVariogram) Symmetric() bool  { return true }
func (v *PowerVariogram) Sill() *mat.Dense { return nil }

// Gamma returns the semivariance at lag h.
func (v *PowerVariogram) Gamma(h float64) float64 {
	if h == 0 {
		return 0
	}
	return v.scaling*math.Pow(h, v.exponent) + v.nugget
}

func (v *PowerVariogram) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	dst.Set(0, 0, average(g1, g2, func(p, q geom.Point) float64 {
		return v.Gamma(geom.Distance(p, q))
	}))
}
