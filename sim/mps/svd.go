package mps

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	jacobiMaxSweeps = 60
	jacobiTol       = 1e-13
)

// svdComplex computes the thin singular value decomposition a = U diag(s) V^H
// of a complex matrix by one-sided Jacobi rotations. U is m x k, s has
// length k, V is n x k, with k = min(m, n) and s sorted descending.
//
// gonum's SVD covers real matrices only; the chain updates need the complex
// case, so it is carried here. One-sided Jacobi is unconditionally stable and
// fully deterministic, which the reproducibility contract relies on.
func svdComplex(a *mat.CDense) (*mat.CDense, []float64, *mat.CDense) {
	m, n := a.Dims()
	if m < n {
		// Work on the conjugate transpose and swap the factors back.
		at := mat.NewCDense(n, m, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				at.Set(j, i, cmplx.Conj(a.At(i, j)))
			}
		}
		v, s, u := svdComplex(at)
		return u, s, v
	}

	// g holds the working columns; v accumulates the right factor.
	g := mat.NewCDense(m, n, nil)
	g.Copy(a)
	v := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		v.Set(i, i, 1)
	}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		converged := true
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				var alpha, beta float64
				var gamma complex128
				for i := 0; i < m; i++ {
					gp, gq := g.At(i, p), g.At(i, q)
					alpha += real(gp)*real(gp) + imag(gp)*imag(gp)
					beta += real(gq)*real(gq) + imag(gq)*imag(gq)
					gamma += cmplx.Conj(gp) * gq
				}
				gAbs := cmplx.Abs(gamma)
				if gAbs <= jacobiTol*math.Sqrt(alpha*beta) {
					continue
				}
				converged = false

				// Diagonalize the Hermitian 2x2 Gram block
				// [[alpha, gamma], [conj(gamma), beta]].
				phase := gamma / complex(gAbs, 0)
				theta := 0.5 * math.Atan2(2*gAbs, alpha-beta)
				c := complex(math.Cos(theta), 0)
				s := complex(math.Sin(theta), 0)

				rotate := func(mtx *mat.CDense, rows int) {
					for i := 0; i < rows; i++ {
						xp, xq := mtx.At(i, p), mtx.At(i, q)
						mtx.Set(i, p, c*xp+s*cmplx.Conj(phase)*xq)
						mtx.Set(i, q, -s*phase*xp+c*xq)
					}
				}
				rotate(g, m)
				rotate(v, n)
			}
		}
		if converged {
			break
		}
	}

	// Column norms are the singular values; normalize the left factor.
	s := make([]float64, n)
	for j := 0; j < n; j++ {
		var norm float64
		for i := 0; i < m; i++ {
			gj := g.At(i, j)
			norm += real(gj)*real(gj) + imag(gj)*imag(gj)
		}
		s[j] = math.Sqrt(norm)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return s[order[i]] > s[order[j]] })

	u := mat.NewCDense(m, n, nil)
	vOut := mat.NewCDense(n, n, nil)
	sOut := make([]float64, n)
	for jOut, jIn := range order {
		sOut[jOut] = s[jIn]
		inv := complex(0, 0)
		if s[jIn] > 0 {
			inv = complex(1/s[jIn], 0)
		}
		for i := 0; i < m; i++ {
			u.Set(i, jOut, g.At(i, jIn)*inv)
		}
		for i := 0; i < n; i++ {
			vOut.Set(i, jOut, v.At(i, jIn))
		}
	}
	return u, sOut, vOut
}
