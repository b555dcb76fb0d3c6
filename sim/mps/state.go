// Package mps implements the bounded-rank factored state (matrix product
// state) backend behind the sim.State interface.
//
// Site tensors are stored in boundary-permuted storage order, each with axes
// (left bond, physical, right bond). Two-site operators on storage-adjacent
// sites contract through a theta matrix and are truncated by SVD; pairs that
// the boundary folding leaves at storage distance two are routed through
// swap contractions.
package mps

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/mps-sim/mps-sim/sim"
)

const (
	defaultCutoff  = 1e-12
	defaultMaxRank = 64
	physDim        = 2
)

// siteTensor is one factor of the chain with axes (left, physical, right).
type siteTensor struct {
	l, r int
	data []complex128 // index (i*physDim+s)*r + j
}

func newSiteTensor(l, r int) *siteTensor {
	return &siteTensor{l: l, r: r, data: make([]complex128, l*physDim*r)}
}

func (t *siteTensor) at(i, s, j int) complex128 {
	return t.data[(i*physDim+s)*t.r+j]
}

func (t *siteTensor) set(i, s, j int, v complex128) {
	t.data[(i*physDim+s)*t.r+j] = v
}

// Config holds factored-state construction parameters.
type Config struct {
	Length   int
	Boundary sim.BoundaryCondition
	// Cutoff is the relative singular-value cutoff for truncation
	// (default 1e-12).
	Cutoff float64
	// MaxRank bounds the bond dimension (default 64).
	MaxRank int
	// Init selects the initial product state: "zeros" (default) or "random"
	// (per-site superpositions drawn from the state-init stream).
	Init string
}

// State is the live factored state. Created once per simulation run, mutated
// in place by the execution engine, discarded afterwards.
type State struct {
	length  int
	bc      sim.BoundaryCondition
	perm    *sim.SitePermutation
	tensors []*siteTensor // storage order
	cutoff  float64
	maxRank int
	rng     *sim.StreamRegistry
	obs     *sim.ObservableRecorder
	// spectra[k] holds the retained singular values at the bond between
	// storage sites k+1 and k+2, from the most recent update there.
	spectra [][]float64
}

// NewState constructs a factored state in the configured product state.
// The boundary permutation is computed here; an odd length under periodic
// boundary fails construction.
func NewState(cfg Config, rng *sim.StreamRegistry) (*State, error) {
	perm, err := sim.ComputePermutation(cfg.Length, cfg.Boundary)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, &sim.ConfigurationError{Reason: "state requires an RNG registry"}
	}
	cutoff := cfg.Cutoff
	if cutoff == 0 {
		cutoff = defaultCutoff
	}
	if cutoff < 0 || cutoff >= 1 {
		return nil, &sim.ConfigurationError{Reason: fmt.Sprintf("cutoff %g outside [0, 1)", cutoff)}
	}
	maxRank := cfg.MaxRank
	if maxRank == 0 {
		maxRank = defaultMaxRank
	}
	if maxRank < 1 {
		return nil, &sim.ConfigurationError{Reason: "max rank must be >= 1"}
	}

	st := &State{
		length:  cfg.Length,
		bc:      cfg.Boundary,
		perm:    perm,
		tensors: make([]*siteTensor, cfg.Length),
		cutoff:  cutoff,
		maxRank: maxRank,
		rng:     rng,
		obs:     sim.NewObservableRecorder(),
		spectra: make([][]float64, cfg.Length-1),
	}

	switch cfg.Init {
	case "", "zeros":
		for i := range st.tensors {
			t := newSiteTensor(1, 1)
			t.set(0, 0, 0, 1)
			st.tensors[i] = t
		}
	case "random":
		for i := range st.tensors {
			u := rng.Draw(sim.StreamStateInit)
			phi := 2 * math.Pi * rng.Draw(sim.StreamStateInit)
			t := newSiteTensor(1, 1)
			t.set(0, 0, 0, complex(math.Sqrt(1-u), 0))
			t.set(0, 1, 0, cmplx.Rect(math.Sqrt(u), phi))
			st.tensors[i] = t
		}
	default:
		return nil, &sim.ConfigurationError{Reason: fmt.Sprintf("unknown init %q", cfg.Init)}
	}
	return st, nil
}

// Length returns the system size L.
func (st *State) Length() int { return st.length }

// Boundary returns the state's boundary condition.
func (st *State) Boundary() sim.BoundaryCondition { return st.bc }

// Permutation returns the physical <-> storage mapping.
func (st *State) Permutation() *sim.SitePermutation { return st.perm }

// Streams returns the RNG registry the state was constructed with.
func (st *State) Streams() *sim.StreamRegistry { return st.rng }

// Observables returns the state's observable recorder.
func (st *State) Observables() *sim.ObservableRecorder { return st.obs }

// BondRank returns the current bond dimension between storage sites k and
// k+1 (1-based k).
func (st *State) BondRank(k int) int { return st.tensors[k-1].r }

// ApplyOperator contracts op into the chain at the given storage sites.
func (st *State) ApplyOperator(storageSites []int, op *mat.CDense, class sim.NormClass) error {
	switch len(storageSites) {
	case 1:
		return st.applyOne(storageSites[0], op, class)
	case 2:
		return st.applyTwo(storageSites[0], storageSites[1], op, class)
	}
	return &sim.ValidationError{Reason: fmt.Sprintf("unsupported operator support %d", len(storageSites))}
}

func (st *State) checkSite(s int) error {
	if s < 1 || s > st.length {
		return &sim.ResolutionError{Geometry: "storage", Step: 0,
			Reason: fmt.Sprintf("storage site %d outside 1..%d", s, st.length)}
	}
	return nil
}

// applyOne contracts a one-site operator into the physical axis of site k.
func (st *State) applyOne(k int, op *mat.CDense, class sim.NormClass) error {
	if err := st.checkSite(k); err != nil {
		return err
	}
	if r, c := op.Dims(); r != physDim || c != physDim {
		return &sim.ValidationError{Reason: fmt.Sprintf("one-site operator is %dx%d, want %dx%d", r, c, physDim, physDim)}
	}
	t := st.tensors[k-1]
	out := newSiteTensor(t.l, t.r)
	for i := 0; i < t.l; i++ {
		for j := 0; j < t.r; j++ {
			for s := 0; s < physDim; s++ {
				var v complex128
				for q := 0; q < physDim; q++ {
					v += op.At(s, q) * t.at(i, q, j)
				}
				out.set(i, s, j, v)
			}
		}
	}
	st.tensors[k-1] = out
	if class == sim.ClassProjective {
		return st.renormalize()
	}
	return nil
}

// applyTwo contracts a two-site operator whose first factor acts on storage
// site a and second on storage site b. Non-adjacent pairs (the folded ring
// leaves physical neighbors at storage distance two) are routed through swap
// contractions: bring b next to a, apply, swap back.
func (st *State) applyTwo(a, b int, op *mat.CDense, class sim.NormClass) error {
	if err := st.checkSite(a); err != nil {
		return err
	}
	if err := st.checkSite(b); err != nil {
		return err
	}
	if a == b {
		return &sim.ValidationError{Reason: fmt.Sprintf("two-site operator on duplicate site %d", a)}
	}
	if r, c := op.Dims(); r != physDim*physDim || c != physDim*physDim {
		return &sim.ValidationError{Reason: fmt.Sprintf("two-site operator is %dx%d, want 4x4", r, c)}
	}

	if a > b {
		a, b = b, a
		op = permuteTwoSite(op)
	}
	moved := 0
	for b > a+1 {
		if err := st.swapAdjacent(b - 1); err != nil {
			return err
		}
		b--
		moved++
	}
	if err := st.applyTwoAdjacent(a, op, class); err != nil {
		return err
	}
	for i := 0; i < moved; i++ {
		if err := st.swapAdjacent(a + 1 + i); err != nil {
			return err
		}
	}
	return nil
}

// swapMatrix is the two-site SWAP operator.
var swapMatrix = mat.NewCDense(4, 4, []complex128{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
})

func (st *State) swapAdjacent(k int) error {
	return st.applyTwoAdjacent(k, swapMatrix, sim.ClassUnitary)
}

// permuteTwoSite reorders a two-site operator so its factors act in swapped
// order: out[(s2 s1),(t2 t1)] = op[(s1 s2),(t1 t2)].
func permuteTwoSite(op *mat.CDense) *mat.CDense {
	out := mat.NewCDense(4, 4, nil)
	for s1 := 0; s1 < physDim; s1++ {
		for s2 := 0; s2 < physDim; s2++ {
			for t1 := 0; t1 < physDim; t1++ {
				for t2 := 0; t2 < physDim; t2++ {
					out.Set(s2*physDim+s1, t2*physDim+t1, op.At(s1*physDim+s2, t1*physDim+t2))
				}
			}
		}
	}
	return out
}

// applyTwoAdjacent contracts a two-site operator into the bond between
// storage sites k and k+1, truncates the singular spectrum by the state's
// cutoff and maximum rank, and records the retained spectrum at the bond.
func (st *State) applyTwoAdjacent(k int, op *mat.CDense, class sim.NormClass) error {
	if k < 1 || k+1 > st.length {
		return &sim.ResolutionError{Geometry: "storage", Step: 0,
			Reason: fmt.Sprintf("bond (%d,%d) outside chain", k, k+1)}
	}
	A, B := st.tensors[k-1], st.tensors[k]
	l, m, r := A.l, A.r, B.r

	// theta[x, s1, s2, y] = sum_m A[x, s1, m] * B[m, s2, y], with the
	// operator applied to the combined physical index.
	theta := make([]complex128, l*physDim*physDim*r)
	idx := func(x, s1, s2, y int) int { return ((x*physDim+s1)*physDim+s2)*r + y }
	for x := 0; x < l; x++ {
		for s1 := 0; s1 < physDim; s1++ {
			for s2 := 0; s2 < physDim; s2++ {
				for y := 0; y < r; y++ {
					var v complex128
					for q := 0; q < m; q++ {
						v += A.at(x, s1, q) * B.at(q, s2, y)
					}
					theta[idx(x, s1, s2, y)] = v
				}
			}
		}
	}

	// M[(x s1), (s2 y)] = sum_{t1 t2} op[(s1 s2), (t1 t2)] theta[x, t1, t2, y]
	M := mat.NewCDense(l*physDim, physDim*r, nil)
	for x := 0; x < l; x++ {
		for s1 := 0; s1 < physDim; s1++ {
			for s2 := 0; s2 < physDim; s2++ {
				for y := 0; y < r; y++ {
					var v complex128
					for t1 := 0; t1 < physDim; t1++ {
						for t2 := 0; t2 < physDim; t2++ {
							v += op.At(s1*physDim+s2, t1*physDim+t2) * theta[idx(x, t1, t2, y)]
						}
					}
					M.Set(x*physDim+s1, s2*r+y, v)
				}
			}
		}
	}

	u, s, v := svdComplex(M)
	keep := truncateSpectrum(s, st.cutoff, st.maxRank)
	if keep == 0 {
		return &sim.ResolutionError{Geometry: "storage", Step: 0,
			Reason: fmt.Sprintf("bond (%d,%d): operator annihilated the state", k, k+1)}
	}

	// A' = U[:, :keep]; B' = diag(s) V^H, so the unitary class preserves the
	// chain norm without rescaling.
	newA := newSiteTensor(l, keep)
	for x := 0; x < l; x++ {
		for s1 := 0; s1 < physDim; s1++ {
			for j := 0; j < keep; j++ {
				newA.set(x, s1, j, u.At(x*physDim+s1, j))
			}
		}
	}
	newB := newSiteTensor(keep, r)
	for j := 0; j < keep; j++ {
		for s2 := 0; s2 < physDim; s2++ {
			for y := 0; y < r; y++ {
				newB.set(j, s2, y, complex(s[j], 0)*cmplx.Conj(v.At(s2*r+y, j)))
			}
		}
	}
	st.tensors[k-1] = newA
	st.tensors[k] = newB
	st.spectra[k-1] = append([]float64(nil), s[:keep]...)

	if class == sim.ClassProjective {
		return st.renormalize()
	}
	return nil
}

// truncateSpectrum returns how many singular values survive the relative
// cutoff and the rank bound. At least one value is kept when the spectrum is
// nonzero.
func truncateSpectrum(s []float64, cutoff float64, maxRank int) int {
	if len(s) == 0 || s[0] == 0 {
		return 0
	}
	keep := 0
	for _, sv := range s {
		if sv <= cutoff*s[0] {
			break
		}
		keep++
		if keep == maxRank {
			break
		}
	}
	if keep == 0 {
		keep = 1
	}
	return keep
}

// Norm returns the state's 2-norm.
func (st *State) Norm() float64 {
	w := []float64{1, 1}
	val := st.diagExpectation(0, w)
	if val < 0 {
		val = 0
	}
	return math.Sqrt(val)
}

// renormalize rescales the chain to unit norm.
func (st *State) renormalize() error {
	n := st.Norm()
	if n == 0 {
		return &sim.ResolutionError{Geometry: "storage", Step: 0,
			Reason: "cannot renormalize a zero-norm state"}
	}
	t := st.tensors[0]
	scale := complex(1/n, 0)
	for i := range t.data {
		t.data[i] *= scale
	}
	return nil
}

// LocalZeroWeight returns the normalized weight of the local |0> basis state
// at the given storage site.
func (st *State) LocalZeroWeight(storageSite int) (float64, error) {
	if err := st.checkSite(storageSite); err != nil {
		return 0, err
	}
	norm2 := st.diagExpectation(0, []float64{1, 1})
	if norm2 == 0 {
		return 0, fmt.Errorf("zero-norm state")
	}
	w := st.diagExpectation(storageSite, []float64{1, 0})
	p := w / norm2
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

// Magnetization returns the normalized <Z> expectation at a physical site.
func (st *State) Magnetization(physSite int) float64 {
	storage := st.perm.PhysToStorage(physSite)
	norm2 := st.diagExpectation(0, []float64{1, 1})
	if norm2 == 0 {
		return 0
	}
	return st.diagExpectation(storage, []float64{1, -1}) / norm2
}

// diagExpectation contracts <psi| D |psi> where D applies the diagonal
// weights w on the physical axis of the given storage site (site 0 means no
// insertion, yielding the squared norm).
func (st *State) diagExpectation(site int, w []float64) float64 {
	// env[i*lc+i2] accumulates the partial contraction; lc is the current
	// left bond dimension.
	env := []complex128{1}
	lc := 1
	for k, t := range st.tensors {
		weights := []float64{1, 1}
		if site == k+1 {
			weights = w
		}
		next := make([]complex128, t.r*t.r)
		for s := 0; s < physDim; s++ {
			if weights[s] == 0 {
				continue
			}
			ws := complex(weights[s], 0)
			for i := 0; i < t.l; i++ {
				for i2 := 0; i2 < t.l; i2++ {
					e := env[i*lc+i2]
					if e == 0 {
						continue
					}
					for j := 0; j < t.r; j++ {
						cj := cmplx.Conj(t.at(i, s, j))
						if cj == 0 {
							continue
						}
						for j2 := 0; j2 < t.r; j2++ {
							next[j*t.r+j2] += ws * cj * e * t.at(i2, s, j2)
						}
					}
				}
			}
		}
		env = next
		lc = t.r
	}
	return real(env[0])
}

// EntanglementEntropy returns the von Neumann entropy of the retained
// spectrum at the bond between storage sites bond and bond+1. A bond that
// has never been updated is a product bond with zero entropy.
func (st *State) EntanglementEntropy(bond int) float64 {
	if bond < 1 || bond > st.length-1 {
		return 0
	}
	spec := st.spectra[bond-1]
	if len(spec) == 0 {
		return 0
	}
	var total float64
	for _, sv := range spec {
		total += sv * sv
	}
	if total == 0 {
		return 0
	}
	var ent float64
	for _, sv := range spec {
		p := sv * sv / total
		if p > 0 {
			ent -= p * math.Log(p)
		}
	}
	return ent
}
