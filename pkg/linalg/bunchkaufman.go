package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// bkAlpha is the Bunch–Kaufman pivot growth bound (1+√17)/8.
var bkAlpha = (1 + math.Sqrt(17)) / 8

// BunchKaufman is the symmetric indefinite factorization
//
//	P·A·Pᵀ = L·D·Lᵀ
//
// with L unit lower triangular and D block diagonal with 1×1 and 2×2
// blocks. Storage is kept between calls to Factorize and only grows.
type BunchKaufman struct {
	n     int
	buf   []float64
	a     *mat.Dense // L below the diagonal, D on the (block) diagonal
	perm  []int
	block []int // 1: 1×1 pivot, 2: first row of a 2×2 pivot, 0: second row
	ok    bool
}

// Factorize computes the factorization of the symmetric matrix a. Only the
// lower triangle of a is read. It reports false when a pivot is exactly
// zero, in which case solutions are undefined.
func (bk *BunchKaufman) Factorize(a mat.Matrix) bool {
	n, c := a.Dims()
	if n != c {
		panic(mat.ErrSquare)
	}
	bk.reset(n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := a.At(i, j)
			bk.a.Set(i, j, v)
			bk.a.Set(j, i, v)
		}
	}

	bk.ok = true
	w := bk.a
	for k := 0; k < n; {
		absakk := math.Abs(w.At(k, k))
		imax, colmax := k, 0.0
		for i := k + 1; i < n; i++ {
			if v := math.Abs(w.At(i, k)); v > colmax {
				imax, colmax = i, v
			}
		}

		if math.Max(absakk, colmax) == 0 {
			// Zero column: record a singular 1×1 pivot and move on.
			bk.ok = false
			bk.block[k] = 1
			k++
			continue
		}

		kp, kstep := k, 1
		if absakk < bkAlpha*colmax {
			rowmax := 0.0
			for j := k; j < n; j++ {
				if j != imax {
					rowmax = math.Max(rowmax, math.Abs(w.At(imax, j)))
				}
			}
			switch {
			case absakk >= bkAlpha*colmax*(colmax/rowmax):
				// Keep the 1×1 pivot at k.
			case math.Abs(w.At(imax, imax)) >= bkAlpha*rowmax:
				kp = imax
			default:
				kp, kstep = imax, 2
			}
		}

		kk := k + kstep - 1
		if kp != kk {
			bk.swap(k, kk, kp)
		}

		if kstep == 1 {
			bk.block[k] = 1
			bk.pivot1(k)
			k++
			continue
		}
		bk.block[k], bk.block[k+1] = 2, 0
		if !bk.pivot2(k) {
			bk.ok = false
		}
		k += 2
	}
	return bk.ok
}

func (bk *BunchKaufman) reset(n int) {
	if cap(bk.buf) < n*n {
		bk.buf = make([]float64, n*n)
		bk.perm = make([]int, n)
		bk.block = make([]int, n)
	}
	bk.n = n
	bk.buf = bk.buf[:n*n]
	bk.perm = bk.perm[:n]
	bk.block = bk.block[:n]
	for i := range bk.perm {
		bk.perm[i] = i
		bk.block[i] = 0
	}
	if n == 0 {
		bk.a = nil
		return
	}
	bk.a = mat.NewDense(n, n, bk.buf)
}

// swap exchanges rows and columns i and j (both ≥ k) of the working matrix.
// Entries of L in columns before k are swapped with the rows.
func (bk *BunchKaufman) swap(k, i, j int) {
	w := bk.a
	for c := 0; c < bk.n; c++ {
		vi, vj := w.At(i, c), w.At(j, c)
		w.Set(i, c, vj)
		w.Set(j, c, vi)
	}
	for r := k; r < bk.n; r++ {
		vi, vj := w.At(r, i), w.At(r, j)
		w.Set(r, i, vj)
		w.Set(r, j, vi)
	}
	bk.perm[i], bk.perm[j] = bk.perm[j], bk.perm[i]
}

func (bk *BunchKaufman) pivot1(k int) {
	w := bk.a
	d := w.At(k, k)
	for i := k + 1; i < bk.n; i++ {
		ri := w.At(i, k)
		if ri == 0 {
			continue
		}
		for j := k + 1; j <= i; j++ {
			v := w.At(i, j) - ri*w.At(j, k)/d
			w.Set(i, j, v)
			w.Set(j, i, v)
		}
	}
	for i := k + 1; i < bk.n; i++ {
		w.Set(i, k, w.At(i, k)/d)
	}
}

func (bk *BunchKaufman) pivot2(k int) bool {
	w := bk.a
	a, b, c := w.At(k, k), w.At(k+1, k), w.At(k+1, k+1)
	det := a*c - b*b
	if det == 0 {
		return false
	}
	m := bk.n - k - 2
	l1 := make([]float64, m)
	l2 := make([]float64, m)
	for t := 0; t < m; t++ {
		i := k + 2 + t
		w1, w2 := w.At(i, k), w.At(i, k+1)
		l1[t] = (c*w1 - b*w2) / det
		l2[t] = (a*w2 - b*w1) / det
	}
	for t := 0; t < m; t++ {
		i := k + 2 + t
		for s := 0; s <= t; s++ {
			j := k + 2 + s
			v := w.At(i, j) - l1[t]*w.At(j, k) - l2[t]*w.At(j, k+1)
			w.Set(i, j, v)
			w.Set(j, i, v)
		}
	}
	for t := 0; t < m; t++ {
		i := k + 2 + t
		w.Set(i, k, l1[t])
		w.Set(i, k+1, l2[t])
	}
	return true
}

// Success reports whether the last factorization had no zero pivot.
func (bk *BunchKaufman) Success() bool { return bk.ok }

// SolveTo solves A·X = B for X, storing the result in dst. dst must be
// empty or have the shape of B.
func (bk *BunchKaufman) SolveTo(dst *mat.Dense, b mat.Matrix) {
	n := bk.n
	br, bc := b.Dims()
	if br != n {
		panic(mat.ErrShape)
	}
	if n == 0 {
		return
	}
	if dst.IsEmpty() {
		dst.ReuseAs(n, bc)
	} else if r, c := dst.Dims(); r != n || c != bc {
		panic(mat.ErrShape)
	}
	y := make([]float64, n)
	for col := 0; col < bc; col++ {
		for i := 0; i < n; i++ {
			y[i] = b.At(bk.perm[i], col)
		}
		bk.solveVec(y)
		for i := 0; i < n; i++ {
			dst.Set(bk.perm[i], col, y[i])
		}
	}
}

func (bk *BunchKaufman) solveVec(y []float64) {
	n := bk.n
	w := bk.a

	// L·z = y
	for i := 0; i < n; i++ {
		s := y[i]
		for j := 0; j < i; j++ {
			if bk.block[i] == 0 && j == i-1 {
				continue
			}
			s -= w.At(i, j) * y[j]
		}
		y[i] = s
	}

	// D·u = z
	for k := 0; k < n; {
		if bk.block[k] == 2 {
			a, b, c := w.At(k, k), w.At(k+1, k), w.At(k+1, k+1)
			det := a*c - b*b
			z1, z2 := y[k], y[k+1]
			if det != 0 {
				y[k] = (c*z1 - b*z2) / det
				y[k+1] = (a*z2 - b*z1) / det
			}
			k += 2
			continue
		}
		if d := w.At(k, k); d != 0 {
			y[k] /= d
		}
		k++
	}

	// Lᵀ·x = u
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for j := i + 1; j < n; j++ {
			if bk.block[j] == 0 && j == i+1 {
				continue
			}
			s -= w.At(j, i) * y[j]
		}
		y[i] = s
	}
}
