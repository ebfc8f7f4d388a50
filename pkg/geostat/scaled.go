package geostat

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// ScaledFunction multiplies every value of a function, and its sill, by a
// positive factor.
type ScaledFunction struct {
	f     Function
	alpha float64
}

// Scale returns f scaled by alpha.
func Scale(f Function, alpha float64) (*ScaledFunction, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("%w: scale factor must be positive, got %g", ErrInvalidParameter, alpha)
	}
	return &ScaledFunction{f: f, alpha: alpha}, nil
}

func (s *ScaledFunction) Kind() Kind       { return s.f.Kind() }
func (s *ScaledFunction) Arity() int       { return s.f.Arity() }
func (s *ScaledFunction) Stationary() bool { return s.f.Stationary() }
func (s *ScaledFunction) Symmetric() bool  { return s.f.Symmetric() }

func (s *ScaledFunction) Sill() *mat.Dense {
	sill := s.f.Sill()
	if sill == nil {
		return nil
	}
	sill.Scale(s.alpha, sill)
	return sill
}

func (s *ScaledFunction) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	s.f.EvalTo(dst, g1, g2)
	dst.Scale(s.alpha, dst)
}
