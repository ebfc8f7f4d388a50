// Package linalg factorizes the dense square systems assembled by the kriging
// engine. Three methods sit behind one type: a symmetric indefinite
// Bunch–Kaufman LDLᵀ, a general LU and a rank-truncated SVD for systems that
// may be structurally rank-deficient.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Method names a factorization.
type Method int

const (
	// Auto lets the caller pick a method from the properties of the system.
	Auto Method = iota
	BunchKaufmanMethod
	LUMethod
	SVDMethod
)

func (m Method) String() string {
	switch m {
	case Auto:
		return "auto"
	case BunchKaufmanMethod:
		return "bunch-kaufman"
	case LUMethod:
		return "lu"
	case SVDMethod:
		return "svd"
	default:
		return "unknown"
	}
}

// ParseMethod returns the method called s. The empty string is Auto.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "", "auto":
		return Auto, true
	case "bunch-kaufman", "bk", "ldlt":
		return BunchKaufmanMethod, true
	case "lu":
		return LUMethod, true
	case "svd":
		return SVDMethod, true
	}
	return Auto, false
}

// SVDTolerance is the relative singular value cut-off used by SVD solves.
const SVDTolerance = 1e-12

// Factorization holds one factorized square system. The zero value is ready
// to use; calling Factorize again reuses the storage of earlier calls.
type Factorization struct {
	method Method
	n      int
	ok     bool

	bk   BunchKaufman
	lu   mat.LU
	svd  mat.SVD
	rank int
}

// Factorize factorizes the n×n matrix a with method m, which must not be
// Auto. It reports whether the factorization succeeded; SVD always does.
func (f *Factorization) Factorize(a mat.Matrix, m Method) bool {
	n, c := a.Dims()
	if n != c {
		panic(mat.ErrSquare)
	}
	f.method = m
	f.n = n
	if n == 0 {
		f.ok = true
		return true
	}

	switch m {
	case BunchKaufmanMethod:
		f.ok = f.bk.Factorize(a)
	case LUMethod:
		f.lu.Factorize(a)
		f.ok = !math.IsInf(f.lu.Cond(), 1)
	case SVDMethod:
		f.rank = 0
		if f.svd.Factorize(a, mat.SVDThin) {
			f.rank = f.svd.Rank(SVDTolerance)
		}
		f.ok = true
	default:
		panic("linalg: factorize with unresolved method " + m.String())
	}
	return f.ok
}

// Method returns the method of the last factorization.
func (f *Factorization) Method() Method { return f.method }

// Success reports whether the last factorization succeeded.
func (f *Factorization) Success() bool { return f.ok }

// Size returns the order of the factorized system.
func (f *Factorization) Size() int { return f.n }

// SolveTo solves A·X = B and stores X in dst, which must be empty or n×k
// where B is n×k. After a failed factorization the content of dst is
// unspecified.
func (f *Factorization) SolveTo(dst *mat.Dense, b mat.Matrix) {
	br, bc := b.Dims()
	if br != f.n {
		panic(mat.ErrShape)
	}
	if f.n == 0 {
		return
	}
	if dst.IsEmpty() {
		dst.ReuseAs(f.n, bc)
	} else if r, c := dst.Dims(); r != f.n || c != bc {
		panic(mat.ErrShape)
	}

	switch f.method {
	case BunchKaufmanMethod:
		f.bk.SolveTo(dst, b)
	case LUMethod:
		dst.Zero()
		// A Condition error only warns about accuracy; singular systems
		// leave dst zeroed.
		_ = f.lu.SolveTo(dst, false, b)
	case SVDMethod:
		if f.rank < 1 {
			dst.Zero()
			return
		}
		f.svd.SolveTo(dst, b, f.rank)
	}
}
