package geostat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// MarkovTransiogram models transition probabilities between K categories as
// a continuous-time Markov chain, T(h) = exp(Q·h). The rate matrix Q is
// built from the mean length of each category and the proportions:
//
//	Q[k][k] = −1/L_k
//	Q[k][j] = p_j / ((1 − p_k)·L_k),  j ≠ k
//
// Rows of T sum to one and the function is not symmetric.
type MarkovTransiogram struct {
	rate        *mat.Dense
	proportions []float64
}

// NewTransiogram returns a transiogram for the given mean lengths and
// proportions. Proportions must be positive and sum to one.
func NewTransiogram(lengths, proportions []float64) (*MarkovTransiogram, error) {
	k := len(lengths)
	if k < 2 || len(proportions) != k {
		return nil, fmt.Errorf("%w: need at least two categories with matching lengths and proportions", ErrInvalidParameter)
	}
	sum := 0.0
	for i := range lengths {
		if lengths[i] <= 0 {
			return nil, fmt.Errorf("%w: mean length %d must be positive", ErrInvalidParameter, i)
		}
		if proportions[i] <= 0 || proportions[i] >= 1 {
			return nil, fmt.Errorf("%w: proportion %d must be in (0, 1)", ErrInvalidParameter, i)
		}
		sum += proportions[i]
	}
	if math.Abs(sum-1) > 1e-9 {
		return nil, fmt.Errorf("%w: proportions sum to %g", ErrInvalidParameter, sum)
	}

	q := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i == j {
				q.Set(i, j, -1/lengths[i])
			} else {
				q.Set(i, j, proportions[j]/((1-proportions[i])*lengths[i]))
			}
		}
	}
	p := make([]float64, k)
	copy(p, proportions)
	return &MarkovTransiogram{rate: q, proportions: p}, nil
}

func (t *MarkovTransiogram) Kind() Kind       { return Transiogram }
func (t *MarkovTransiogram) Arity() int       { return len(t.proportions) }
func (t *MarkovTransiogram) Stationary() bool { return true }
func (t *MarkovTransiogram) Symmetric() bool  { return false }

// Sill returns the K×K matrix whose rows are the proportions.
func (t *MarkovTransiogram) Sill() *mat.Dense {
	k := len(t.proportions)
	sill := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		sill.SetRow(i, t.proportions)
	}
	return sill
}

// At returns T(h).
func (t *MarkovTransiogram) At(h float64) *mat.Dense {
	k := len(t.proportions)
	if h == 0 {
		out := mat.NewDense(k, k, nil)
		for i := 0; i < k; i++ {
			out.Set(i, i, 1)
		}
		return out
	}
	var qh, out mat.Dense
	qh.Scale(h, t.rate)
	out.Exp(&qh)
	return &out
}

func (t *MarkovTransiogram) EvalTo(dst *mat.Dense, g1, g2 geom.Geometry) {
	s1, s2 := g1.Support(), g2.Support()
	dst.Zero()
	for _, p := range s1 {
		for _, q := range s2 {
			dst.Add(dst, t.At(geom.Distance(p, q)))
		}
	}
	dst.Scale(1/float64(len(s1)*len(s2)), dst)
}
