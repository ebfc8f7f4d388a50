package kriging

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"geokriging/pkg/geodata"
	"geokriging/pkg/geostat"
	"geokriging/pkg/linalg"
)

// build assembles and factorizes the system for table. The table has been
// checked against the model already.
func (f *Fitted) build(table *geodata.Table) {
	f.table = table
	f.geoms = table.Geometries()
	f.n = table.Len()
	k := f.k
	nk := f.n * k
	m := nk + f.c

	f.values = f.values[:0]
	f.miss = f.miss[:0]
	for i := 0; i < f.n; i++ {
		for j, name := range f.names {
			v, ok := table.Value(name, i)
			if !ok {
				v = math.NaN()
				f.miss = append(f.miss, i*k+j)
			}
			f.values = append(f.values, v)
		}
	}

	lhs := f.lhs.Slice(0, m, 0, m).(*mat.Dense)
	lhs.Zero()

	geostat.PairwiseTo(lhs, f.fn, f.geoms)
	if f.convert {
		toCovariance(lhs, f.sill, f.n, f.n, k)
	}
	f.model.fillLHS(lhs, k, f.geoms)
	knockout(lhs, f.miss)

	method := f.method()
	f.fact.Factorize(lhs, method)

	f.logger.Debug("fitted kriging system",
		zap.Int("samples", f.n),
		zap.Int("variables", k),
		zap.Int("constraints", f.c),
		zap.Int("missing", len(f.miss)),
		zap.Stringer("method", method),
		zap.Bool("success", f.fact.Success()),
	)
}

// method chooses the factorization: rank-tolerant SVD for transiograms,
// Bunch–Kaufman for symmetric functions and LU otherwise.
func (f *Fitted) method() linalg.Method {
	switch {
	case f.forced != linalg.Auto:
		return f.forced
	case f.fn.Kind() == geostat.Transiogram:
		return linalg.SVDMethod
	case f.fn.Symmetric():
		return linalg.BunchKaufmanMethod
	default:
		return linalg.LUMethod
	}
}

// toCovariance replaces every k×k block of the leading (rows·k)×(cols·k)
// part of m by sill − block.
func toCovariance(m *mat.Dense, sill *mat.Dense, rows, cols, k int) {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for p := 0; p < k; p++ {
				for q := 0; q < k; q++ {
					r, c := i*k+p, j*k+q
					m.Set(r, c, sill.At(p, q)-m.At(r, c))
				}
			}
		}
	}
}

// knockout removes the missing unknowns from the system: their rows and
// columns are zeroed and the diagonal set to one, so they solve to a zero
// weight without coupling to the other unknowns.
func knockout(lhs *mat.Dense, miss []int) {
	if len(miss) == 0 {
		return
	}
	m, _ := lhs.Dims()
	for _, p := range miss {
		for j := 0; j < m; j++ {
			lhs.Set(p, j, 0)
			lhs.Set(j, p, 0)
		}
	}
	for _, p := range miss {
		lhs.Set(p, p, 1)
	}
}
