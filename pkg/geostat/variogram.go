package geostat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// VariogramModel selects the shape of a stationary variogram.
type VariogramModel int

const (
	Spherical VariogramModel = iota
	Exponential
	Gaussian
	NuggetEffect
)

func (m VariogramModel) String() string {
	switch m {
	case Spherical:
		return "spherical"
	case Exponential:
		return "exponential"
	case Gaussian:
		return "gaussian"
	case NuggetEffect:
		return "nugget"
	default:
		return "unknown"
	}
}

// Anisotropy stretches lags in the xy plane. Lags are rotated by Direction
// (radians) and the component across the major axis is multiplied by Ratio.
// A zero Ratio disables anisotropy.
type Anisotropy struct {
	Ratio     float64
	Direction float64
}

// Params holds the parameters of a stationary variogram.
type Params struct {
	Range      float64        // Range of the structure
	Sill       float64        // Total sill, nugget included
	Nugget     float64        // Nugget effect
	Model      VariogramModel // Shape of the structure
	Anisotropy Anisotropy
}

// StationaryVariogram is a univariate stationary variogram.
type StationaryVariogram struct {
	params Params
}

// NewVariogram validates p and returns the variogram.
func NewVariogram(p Params) (*StationaryVariogram, error) {
	if p.Nugget < 0 || p.Sill < p.Nugget {
		return nil, fmt.Errorf("%w: need 0 <= nugget <= sill, got nugget=%g sill=%g", ErrInvalidParameter, p.Nugget, p.Sill)
	}
	if p.Model != NuggetEffect && p.Range <= 0 {
		return nil, fmt.Errorf("%w: range must be positive, got %g", ErrInvalidParameter, p.Range)
	}
	if p.Model < Spherical || p.Model > NuggetEffect {
		return nil, fmt.Errorf("%w: unknown model %d", ErrInvalidParameter, p.Model)
	}
	if p.Anisotropy.Ratio < 0 {
		return nil, fmt.Errorf("%w: anisotropy ratio must not be negative", ErrInvalidParameter)
	}
	return &StationaryVariogram{params: p}, nil
}

// MustVariogram is like NewVariogram but panics on invalid parameters.
func MustVariogram(p Params) *StationaryVariogram {
	v, err := NewVariogram(p)
	if err != nil {
		panic(err)
	}
	return v
}

// Params returns the variogram parameters.
func (v *StationaryVariogram) Params() Params { return v.params }

// Kind returns Variogram.
func (v *StationaryVariogram) Kind() Kind { return Variogram }

// Arity returns 1.
func (v *StationaryVariogram) Arity() int { return 1 }

// Stationary returns true.
func (v *StationaryVariogram) Stationary() bool { return true }

// Symmetric returns true.
func (v *StationaryVariogram) Symmetric() bool { return true }

// Sill returns the total sill as a 1×1 matrix.
func (v *StationaryVariogram) Sill() *mat.Dense {
	return mat.NewDense(1, 1, []float64{v.params.Sill})
}

// EvalTo writes the (regularized) semivariance between g1 and g2.
func (v *StationaryVariogram) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	dst.Set(0, 0, v.between(g1, g2))
}

func (v *StationaryVariogram) between(g1, g2 geom.Geometry) float64 {
	return average(g1, g2, func(p, q geom.Point) float64 {
		return v.Gamma(v.Lag(p, q))
	})
}

// Lag returns the distance between p and q after anisotropy is applied.
func (v *StationaryVariogram) Lag(p, q geom.Point) float64 {
	return anisotropicDistance(v.params.Anisotropy, p, q)
}

// Gamma returns the semivariance at lag h.
func (v *StationaryVariogram) Gamma(h float64) float64 {
	if h == 0 {
		return 0
	}

	p := v.params
	partial := p.Sill - p.Nugget
	gamma := p.Nugget

	switch p.Model {
	case Spherical:
		if h < p.Range {
			r := h / p.Range
			gamma += partial * (1.5*r - 0.5*r*r*r)
		} else {
			gamma += partial
		}
	case Exponential:
		gamma += partial * (1 - math.Exp(-3*h/p.Range))
	case Gaussian:
		gamma += partial * (1 - math.Exp(-3*h*h/(p.Range*p.Range)))
	case NuggetEffect:
		gamma += partial
	}

	return gamma
}

// anisotropicDistance computes the distance between p and q with the xy
// components rotated by a.Direction and the minor component scaled by
// a.Ratio. Coordinates beyond the second are left as they are.
func anisotropicDistance(a Anisotropy, p, q geom.Point) float64 {
	if a.Ratio == 0 || len(p) < 2 || len(q) < 2 {
		return geom.Distance(p, q)
	}

	dx := q[0] - p[0]
	dy := q[1] - p[1]
	dx2 := dx*math.Cos(a.Direction) + dy*math.Sin(a.Direction)
	dy2 := (-dx*math.Sin(a.Direction) + dy*math.Cos(a.Direction)) * a.Ratio

	sum := dx2*dx2 + dy2*dy2
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	for i := 2; i < n; i++ {
		d := coordAt(q, i) - coordAt(p, i)
		sum += d * d
	}
	return math.Sqrt(sum)
}

func coordAt(p geom.Point, i int) float64 {
	if i < len(p) {
		return p[i]
	}
	return 0
}
