package kriging

import (
	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geom"
)

// fillDriftLHS places drift_t(x_i)·I_k in the constraint block of every
// sample i and term t, and mirrors it. Row n·k + t·k + p pairs with
// column i·k + p.
func fillDriftLHS(lhs *mat.Dense, k int, geoms []geom.Geometry, drifts []Drift) {
	n := len(geoms)
	base := n * k
	for i, g := range geoms {
		for t, d := range drifts {
			v := d(g)
			for p := 0; p < k; p++ {
				for q := 0; q < k; q++ {
					x := 0.0
					if p == q {
						x = v
					}
					r, c := base+t*k+p, i*k+q
					lhs.Set(r, c, x)
					lhs.Set(c, r, x)
				}
			}
		}
	}
}

// fillDriftRHS places drift_t(x₀)·I_k in rows n·k + t·k of rhs.
func fillDriftRHS(rhs *mat.Dense, k, n int, target geom.Geometry, drifts []Drift) {
	base := n * k
	for t, d := range drifts {
		v := d(target)
		for p := 0; p < k; p++ {
			for j := 0; j < k; j++ {
				x := 0.0
				if p == j {
					x = v
				}
				rhs.Set(base+t*k+p, j, x)
			}
		}
	}
}
