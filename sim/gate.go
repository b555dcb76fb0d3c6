package sim

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// NormClass is the post-update normalization policy of a gate.
type NormClass int

const (
	// ClassUnitary gates preserve the state norm; no renormalization after
	// the bounded-rank update.
	ClassUnitary NormClass = iota
	// ClassProjective gates shrink the state norm; the state is renormalized
	// to unit norm after truncation.
	ClassProjective
)

func (c NormClass) String() string {
	if c == ClassProjective {
		return "projective"
	}
	return "unitary"
}

// MaterializeContext carries everything a gate may need to produce its
// concrete operator for one application.
type MaterializeContext struct {
	// Sites are the 1-based storage indices the operator will act on.
	Sites []int
	// Streams is the run's RNG registry; randomized gates draw from their
	// dedicated sampling stream (unitary, measurement).
	Streams *StreamRegistry
	// ZeroWeight is the state's current |0> weight at the target site,
	// supplied by the execution engine for projective one-site gates.
	ZeroWeight float64
}

// Gate is the collaborator interface for operators acting on the state.
// A gate declares its support (1 or 2 sites) and normalization class, and
// materializes a d^support x d^support operator on demand.
type Gate interface {
	Name() string
	Support() int
	Class() NormClass
	Materialize(ctx MaterializeContext) (*mat.CDense, error)
}

// === Fixed-matrix gates ===

// matrixGate is a gate with a constant operator matrix.
type matrixGate struct {
	name    string
	support int
	class   NormClass
	m       *mat.CDense
}

func (g *matrixGate) Name() string     { return g.name }
func (g *matrixGate) Support() int     { return g.support }
func (g *matrixGate) Class() NormClass { return g.class }

func (g *matrixGate) Materialize(MaterializeContext) (*mat.CDense, error) {
	return g.m, nil
}

func newMatrixGate(name string, support int, class NormClass, data []complex128) *matrixGate {
	n := 2
	if support == 2 {
		n = 4
	}
	return &matrixGate{name: name, support: support, class: class, m: mat.NewCDense(n, n, data)}
}

// PauliX returns the one-site bit-flip gate.
func PauliX() Gate {
	return newMatrixGate("X", 1, ClassUnitary, []complex128{0, 1, 1, 0})
}

// PauliY returns the one-site Pauli-Y gate.
func PauliY() Gate {
	return newMatrixGate("Y", 1, ClassUnitary, []complex128{0, -1i, 1i, 0})
}

// PauliZ returns the one-site phase-flip gate.
func PauliZ() Gate {
	return newMatrixGate("Z", 1, ClassUnitary, []complex128{1, 0, 0, -1})
}

// Hadamard returns the one-site Hadamard gate.
func Hadamard() Gate {
	h := complex(1/math.Sqrt2, 0)
	return newMatrixGate("H", 1, ClassUnitary, []complex128{h, h, h, -h})
}

// CZ returns the two-site controlled-phase gate.
func CZ() Gate {
	return newMatrixGate("CZ", 2, ClassUnitary, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
	})
}

// CNOT returns the two-site controlled-not gate (control on the first site
// of the resolved pair).
func CNOT() Gate {
	return newMatrixGate("CNOT", 2, ClassUnitary, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})
}

// === Haar-random unitary ===

// haarGate samples a fresh Haar-distributed unitary on every materialization,
// consuming the unitary stream. Two materializations therefore differ, but
// the whole trajectory is reproducible from the stream seed.
type haarGate struct {
	support int
}

// HaarUnitary returns a gate sampling a Haar-random unitary on support sites.
func HaarUnitary(support int) Gate {
	return &haarGate{support: support}
}

func (g *haarGate) Name() string     { return fmt.Sprintf("U%d", g.support) }
func (g *haarGate) Support() int     { return g.support }
func (g *haarGate) Class() NormClass { return ClassUnitary }

func (g *haarGate) Materialize(ctx MaterializeContext) (*mat.CDense, error) {
	if ctx.Streams == nil {
		return nil, &ConfigurationError{Reason: "haar gate requires an RNG registry"}
	}
	n := 2
	if g.support == 2 {
		n = 4
	}
	// Ginibre matrix from the unitary stream, then orthonormalize. The QR
	// phase convention (positive diagonal) makes the distribution Haar.
	z := make([]complex128, n*n)
	for i := range z {
		re, im := gaussianPair(ctx.Streams, StreamUnitary)
		z[i] = complex(re, im)
	}
	a := mat.NewCDense(n, n, z)
	return gramSchmidtUnitary(a), nil
}

// gaussianPair draws two independent standard normals via Box-Muller.
func gaussianPair(r *StreamRegistry, stream string) (float64, float64) {
	u1 := r.Draw(stream)
	u2 := r.Draw(stream)
	// Guard against log(0).
	if u1 < 1e-300 {
		u1 = 1e-300
	}
	rad := math.Sqrt(-2 * math.Log(u1))
	return rad * math.Cos(2*math.Pi*u2), rad * math.Sin(2*math.Pi*u2)
}

// gramSchmidtUnitary orthonormalizes the columns of a (modified Gram-Schmidt)
// and fixes each column's phase so the leading diagonal entry of R is real
// positive.
func gramSchmidtUnitary(a *mat.CDense) *mat.CDense {
	n, _ := a.Dims()
	q := mat.NewCDense(n, n, nil)
	col := make([]complex128, n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			col[i] = a.At(i, j)
		}
		for k := 0; k < j; k++ {
			var dot complex128
			for i := 0; i < n; i++ {
				dot += cmplx.Conj(q.At(i, k)) * col[i]
			}
			for i := 0; i < n; i++ {
				col[i] -= dot * q.At(i, k)
			}
		}
		var norm float64
		for i := 0; i < n; i++ {
			norm += real(col[i])*real(col[i]) + imag(col[i])*imag(col[i])
		}
		norm = math.Sqrt(norm)
		// Phase fix: rotate so col[j] (the R diagonal) lands on the positive
		// real axis.
		phase := complex(1, 0)
		if cmplx.Abs(col[j]) > 0 {
			phase = cmplx.Conj(col[j] / complex(cmplx.Abs(col[j]), 0))
		}
		for i := 0; i < n; i++ {
			q.Set(i, j, phase*col[i]/complex(norm, 0))
		}
	}
	return q
}

// === Projective measurement ===

// measureGate projects a site onto |0> or |1> in the computational basis.
// The outcome is drawn from the measurement stream against the engine-supplied
// zero weight; the operator itself is an opaque projector.
type measureGate struct{}

// MeasureZ returns the one-site computational-basis measurement gate.
func MeasureZ() Gate { return measureGate{} }

func (measureGate) Name() string     { return "M" }
func (measureGate) Support() int     { return 1 }
func (measureGate) Class() NormClass { return ClassProjective }

func (measureGate) Materialize(ctx MaterializeContext) (*mat.CDense, error) {
	if ctx.Streams == nil {
		return nil, &ConfigurationError{Reason: "measurement gate requires an RNG registry"}
	}
	u := ctx.Streams.Draw(StreamMeasurement)
	if u < ctx.ZeroWeight {
		return mat.NewCDense(2, 2, []complex128{1, 0, 0, 0}), nil
	}
	return mat.NewCDense(2, 2, []complex128{0, 0, 0, 1}), nil
}

// === Lookup ===

// gateConstructors maps spec names to stock gate constructors.
var gateConstructors = map[string]func() Gate{
	"x":         PauliX,
	"y":         PauliY,
	"z":         PauliZ,
	"h":         Hadamard,
	"cz":        CZ,
	"cnot":      CNOT,
	"haar1":     func() Gate { return HaarUnitary(1) },
	"haar2":     func() Gate { return HaarUnitary(2) },
	"measure-z": MeasureZ,
}

// GateByName returns the stock gate registered under name.
func GateByName(name string) (Gate, error) {
	ctor, ok := gateConstructors[name]
	if !ok {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown gate %q", name)}
	}
	return ctor(), nil
}

// GateNames returns the registered stock gate names (unordered).
func GateNames() []string {
	names := make([]string, 0, len(gateConstructors))
	for name := range gateConstructors {
		names = append(names, name)
	}
	return names
}
