// Package geostat implements the spatial correlation functions used by the
// kriging engine: variograms, covariances, transiograms and linear models of
// coregionalization for several variables.
//
// Every function evaluates to a K×K matrix for a pair of geometries, K being
// the number of co-located variables (its arity). Extended geometries are
// handled by averaging the point values over all pairs of support points.
package geostat

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// ErrInvalidParameter is returned when a model parameter is out of range.
var ErrInvalidParameter = errors.New("geostat: invalid parameter")

// Kind tells whether a function measures dissimilarity or similarity.
type Kind int

const (
	// Variogram functions grow with distance.
	Variogram Kind = iota
	// Covariance functions decay with distance.
	Covariance
	// Transiogram functions give category transition probabilities and may be
	// structurally rank-deficient.
	Transiogram
)

func (k Kind) String() string {
	switch k {
	case Variogram:
		return "variogram"
	case Covariance:
		return "covariance"
	case Transiogram:
		return "transiogram"
	default:
		return "unknown"
	}
}

// Function is a spatial correlation function over geometries.
type Function interface {
	// Kind reports the family of the function.
	Kind() Kind

	// Arity is the number of co-located variables K.
	Arity() int

	// Stationary reports whether the function depends on the lag only and
	// has a sill.
	Stationary() bool

	// Symmetric reports whether f(g2, g1) is the transpose of f(g1, g2).
	Symmetric() bool

	// Sill returns a fresh K×K asymptotic value that the caller may modify.
	// It is nil for non-stationary functions.
	Sill() *mat.Dense

	// EvalTo writes the K×K value between g1 and g2 into dst.
	EvalTo(dst *mat.Dense, g1, g2 geom.Geometry)
}

// Eval returns the K×K value of f between g1 and g2.
func Eval(f Function, g1, g2 geom.Geometry) *mat.Dense {
	k := f.Arity()
	dst := mat.NewDense(k, k, nil)
	f.EvalTo(dst, g1, g2)
	return dst
}

// Pairwise returns the (N·K)×(N·K) matrix of f over all pairs of geoms.
// Block (i, j) holds f(geoms[i], geoms[j]).
func Pairwise(f Function, geoms []geom.Geometry) *mat.Dense {
	k := f.Arity()
	n := len(geoms) * k
	dst := mat.NewDense(n, n, nil)
	PairwiseTo(dst, f, geoms)
	return dst
}

// PairwiseTo fills the leading (N·K)×(N·K) block of dst with f over all pairs
// of geoms.
func PairwiseTo(dst *mat.Dense, f Function, geoms []geom.Geometry) {
	k := f.Arity()
	block := mat.NewDense(k, k, nil)
	sym := f.Symmetric()
	for i, gi := range geoms {
		for j := range geoms {
			if sym && j < i {
				continue
			}
			f.EvalTo(block, gi, geoms[j])
			for p := 0; p < k; p++ {
				for q := 0; q < k; q++ {
					v := block.At(p, q)
					dst.Set(i*k+p, j*k+q, v)
					if sym {
						dst.Set(j*k+q, i*k+p, v)
					}
				}
			}
		}
	}
}

// Against fills the leading (N·K)×K block of dst with f between each of
// geoms and g.
func Against(dst *mat.Dense, f Function, geoms []geom.Geometry, g geom.Geometry) {
	k := f.Arity()
	block := mat.NewDense(k, k, nil)
	for i, gi := range geoms {
		f.EvalTo(block, gi, g)
		for p := 0; p < k; p++ {
			for q := 0; q < k; q++ {
				dst.Set(i*k+p, q, block.At(p, q))
			}
		}
	}
}

// average evaluates fn over all pairs of support points of g1 and g2 and
// returns the mean. Two points reduce to a single evaluation.
func average(g1, g2 geom.Geometry, fn func(p, q geom.Point) float64) float64 {
	s1, s2 := g1.Support(), g2.Support()
	if len(s1) == 1 && len(s2) == 1 {
		return fn(s1[0], s2[0])
	}
	sum := 0.0
	for _, p := range s1 {
		for _, q := range s2 {
			sum += fn(p, q)
		}
	}
	return sum / float64(len(s1)*len(s2))
}
