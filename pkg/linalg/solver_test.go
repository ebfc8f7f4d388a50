package linalg

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomSymmetric(rnd *rand.Rand, n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, rnd.NormFloat64())
		}
	}
	return s
}

// krigingLike returns a bordered system [K 1; 1ᵀ 0], which is indefinite.
func krigingLike(n int) *mat.Dense {
	a := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := float64(i - j)
			a.Set(i, j, 1/(1+d*d))
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
	}
	return a
}

func TestBunchKaufmanSolve(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	testCases := []struct {
		name string
		a    mat.Matrix
	}{
		{"swap pivot", mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
		{"diagonal", mat.NewDense(3, 3, []float64{2, 0, 0, 0, -3, 0, 0, 0, 5})},
		{"bordered", krigingLike(6)},
		{"random 8", randomSymmetric(rnd, 8)},
		{"random 25", randomSymmetric(rnd, 25)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, _ := tc.a.Dims()
			b := mat.NewDense(n, 2, nil)
			for i := 0; i < n; i++ {
				b.Set(i, 0, float64(i+1))
				b.Set(i, 1, rnd.NormFloat64())
			}

			var bk BunchKaufman
			require.True(t, bk.Factorize(tc.a))

			var x mat.Dense
			bk.SolveTo(&x, b)

			var ax mat.Dense
			ax.Mul(tc.a, &x)
			require.True(t, mat.EqualApprox(&ax, b, 1e-8), "A·x = b")
		})
	}
}

func TestBunchKaufmanSingular(t *testing.T) {
	var bk BunchKaufman
	a := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		1, 1, 0,
		0, 0, 2,
	})
	require.False(t, bk.Factorize(a))
	require.False(t, bk.Success())

	// Storage is reused for a smaller system.
	require.True(t, bk.Factorize(mat.NewDense(1, 1, []float64{4})))
	var x mat.Dense
	bk.SolveTo(&x, mat.NewDense(1, 1, []float64{2}))
	require.Equal(t, 0.5, x.At(0, 0))
}

func TestFactorizationMethodsAgree(t *testing.T) {
	a := krigingLike(10)
	b := mat.NewDense(11, 1, nil)
	for i := 0; i < 10; i++ {
		b.Set(i, 0, 1/(1+float64(i)))
	}
	b.Set(10, 0, 1)

	var want mat.Dense
	require.NoError(t, want.Solve(a, b))

	for _, m := range []Method{BunchKaufmanMethod, LUMethod, SVDMethod} {
		var f Factorization
		require.True(t, f.Factorize(a, m), m.String())
		require.Equal(t, m, f.Method())
		x := mat.NewDense(11, 1, nil)
		f.SolveTo(x, b)
		require.True(t, mat.EqualApprox(x, &want, 1e-8), m.String())
	}
}

func TestFactorizationRankDeficient(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 1, 1, 1})

	var lu Factorization
	require.False(t, lu.Factorize(a, LUMethod))

	var svd Factorization
	require.True(t, svd.Factorize(a, SVDMethod))
	x := mat.NewDense(2, 1, nil)
	svd.SolveTo(x, mat.NewDense(2, 1, []float64{2, 2}))
	// Minimum norm solution.
	require.InDelta(t, 1, x.At(0, 0), 1e-12)
	require.InDelta(t, 1, x.At(1, 0), 1e-12)
}

func TestParseMethod(t *testing.T) {
	testCases := []struct {
		input    string
		expected Method
		ok       bool
	}{
		{"", Auto, true},
		{"auto", Auto, true},
		{"bunch-kaufman", BunchKaufmanMethod, true},
		{"bk", BunchKaufmanMethod, true},
		{"ldlt", BunchKaufmanMethod, true},
		{"lu", LUMethod, true},
		{"svd", SVDMethod, true},
		{"qr", Auto, false},
		{"LU", Auto, false},
	}

	for i, tc := range testCases {
		m, ok := ParseMethod(tc.input)
		if ok != tc.ok || m != tc.expected {
			t.Errorf("Case %d (%q): expected (%s, %v), got (%s, %v)", i, tc.input, tc.expected, tc.ok, m, ok)
		}
	}
}
