package mps

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomCDense(rng *rand.Rand, m, n int) *mat.CDense {
	a := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, complex(rng.NormFloat64(), rng.NormFloat64()))
		}
	}
	return a
}

// reconstructSVD multiplies U diag(s) V^H back together.
func reconstructSVD(u *mat.CDense, s []float64, v *mat.CDense) *mat.CDense {
	m, k := u.Dims()
	n, _ := v.Dims()
	out := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum complex128
			for q := 0; q < k; q++ {
				sum += u.At(i, q) * complex(s[q], 0) * cmplx.Conj(v.At(j, q))
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

func assertAllClose(t *testing.T, want, got *mat.CDense, tol float64) {
	t.Helper()
	m, n := want.Dims()
	gm, gn := got.Dims()
	require.Equal(t, m, gm)
	require.Equal(t, n, gn)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if cmplx.Abs(want.At(i, j)-got.At(i, j)) > tol {
				t.Fatalf("entry (%d,%d): want %v, got %v", i, j, want.At(i, j), got.At(i, j))
			}
		}
	}
}

func assertOrthonormalColumns(t *testing.T, a *mat.CDense, tol float64) {
	t.Helper()
	m, n := a.Dims()
	for p := 0; p < n; p++ {
		for q := p; q < n; q++ {
			var dot complex128
			for i := 0; i < m; i++ {
				dot += cmplx.Conj(a.At(i, p)) * a.At(i, q)
			}
			want := complex128(0)
			if p == q {
				want = 1
			}
			if cmplx.Abs(dot-want) > tol {
				t.Fatalf("columns (%d,%d): inner product %v, want %v", p, q, dot, want)
			}
		}
	}
}

func TestSVDComplex_Reconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	shapes := []struct{ m, n int }{{4, 4}, {6, 3}, {3, 6}, {2, 8}, {8, 2}, {1, 4}}
	for _, sh := range shapes {
		a := randomCDense(rng, sh.m, sh.n)
		u, s, v := svdComplex(a)

		k := sh.m
		if sh.n < k {
			k = sh.n
		}
		require.Len(t, s, k)
		for i := 1; i < k; i++ {
			assert.GreaterOrEqual(t, s[i-1], s[i], "%dx%d: spectrum not descending", sh.m, sh.n)
		}
		assertOrthonormalColumns(t, u, 1e-10)
		assertOrthonormalColumns(t, v, 1e-10)
		assertAllClose(t, a, reconstructSVD(u, s, v), 1e-10)
	}
}

func TestSVDComplex_KnownSpectrum(t *testing.T) {
	// Antidiagonal real matrix with singular values 3 and 2.
	a := mat.NewCDense(2, 2, []complex128{0, 2, 3, 0})
	_, s, _ := svdComplex(a)
	require.Len(t, s, 2)
	assert.InDelta(t, 3.0, s[0], 1e-12)
	assert.InDelta(t, 2.0, s[1], 1e-12)

	// A global phase does not change the spectrum.
	phase := cmplx.Rect(1, 0.7)
	b := mat.NewCDense(2, 2, []complex128{0, 2 * phase, 3 * phase, 0})
	_, s, _ = svdComplex(b)
	assert.InDelta(t, 3.0, s[0], 1e-12)
	assert.InDelta(t, 2.0, s[1], 1e-12)
}

func TestSVDComplex_RankDeficient(t *testing.T) {
	// Rank-1 outer product: second singular value vanishes.
	a := mat.NewCDense(2, 2, []complex128{1, 2, 2, 4})
	u, s, v := svdComplex(a)
	require.Len(t, s, 2)
	assert.InDelta(t, 5.0, s[0], 1e-10) // sqrt(1+4+4+16)
	assert.InDelta(t, 0.0, s[1], 1e-10)
	assertAllClose(t, a, reconstructSVD(u, s, v), 1e-10)
}

func TestSVDComplex_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomCDense(rng, 4, 4)
	u1, s1, v1 := svdComplex(a)
	u2, s2, v2 := svdComplex(a)
	assert.Equal(t, s1, s2)
	assertAllClose(t, u1, u2, 0)
	assertAllClose(t, v1, v2, 0)
}

func TestSVDComplex_UnitaryInput(t *testing.T) {
	h := complex(1/math.Sqrt2, 0)
	a := mat.NewCDense(2, 2, []complex128{h, h, h, -h})
	_, s, _ := svdComplex(a)
	assert.InDelta(t, 1.0, s[0], 1e-12)
	assert.InDelta(t, 1.0, s[1], 1e-12)
}
