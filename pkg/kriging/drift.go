package kriging

import (
	"fmt"
	"math"
	"sort"

	"geokriging/pkg/geom"
)

// Drift is a deterministic trend term evaluated at the centroid of a
// geometry.
type Drift func(g geom.Geometry) float64

// Constant is the drift term equal to one everywhere.
func Constant(geom.Geometry) float64 { return 1 }

// Monomial returns the drift ∏ x_i^exponents[i]. Coordinates the centroid
// does not have are taken as zero.
func Monomial(exponents ...int) Drift {
	e := make([]int, len(exponents))
	copy(e, exponents)
	return func(g geom.Geometry) float64 {
		c := g.Centroid()
		v := 1.0
		for i, p := range e {
			if p == 0 {
				continue
			}
			x := 0.0
			if i < len(c) {
				x = c[i]
			}
			v *= math.Pow(x, float64(p))
		}
		return v
	}
}

// MonomialExponents returns the exponent tuples of the polynomial basis of
// the given degree in dim dimensions. Tuples of total degree 0..degree are
// listed with the first coordinate descending, then stably sorted by
// descending largest single exponent.
func MonomialExponents(degree, dim int) ([][]int, error) {
	if degree < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, degree)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDimension, dim)
	}

	var terms [][]int
	for total := 0; total <= degree; total++ {
		terms = appendExponents(terms, make([]int, 0, dim), dim, total)
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return maxInt(terms[i]) > maxInt(terms[j])
	})
	return terms, nil
}

func appendExponents(out [][]int, prefix []int, dim, remaining int) [][]int {
	if len(prefix) == dim-1 {
		t := make([]int, dim)
		copy(t, prefix)
		t[dim-1] = remaining
		return append(out, t)
	}
	for e := remaining; e >= 0; e-- {
		out = appendExponents(out, append(prefix, e), dim, remaining-e)
	}
	return out
}

func maxInt(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}
