package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// probSumTolerance absorbs float accumulation error when validating that a
// stochastic spec's outcome probabilities do not exceed 1.
const probSumTolerance = 1e-9

// OpKind discriminates the OperationSpec union.
type OpKind int

const (
	// OpDeterministic applies a fixed gate at a geometry every step.
	OpDeterministic OpKind = iota
	// OpStochastic selects among weighted outcomes using a named RNG stream;
	// the probability remainder is an implicit no-op branch.
	OpStochastic
)

// Outcome is one weighted branch of a stochastic operation.
type Outcome struct {
	Prob     float64
	Gate     Gate
	Geometry Geometry
}

// OperationSpec is one symbolic entry of a circuit: either a deterministic
// gate placement or a stochastic choice among outcomes.
type OperationSpec struct {
	Kind OpKind

	// Deterministic payload.
	Gate     Gate
	Geometry Geometry

	// Stochastic payload.
	Stream   string
	Outcomes []Outcome
}

// Circuit is a frozen, symbolic circuit description: system size, boundary
// condition, the number of steps one run repeats, and the ordered operation
// specs. Immutable after construction; shared read-only by the expander and
// the execution engine. The only mutable state reachable through a Circuit
// is the position cell of any pointer geometry, which the resolution path
// resets at the start of each expansion or execution.
type Circuit struct {
	length      int
	boundary    BoundaryCondition
	stepsPerRun int
	ops         []OperationSpec
	pointers    []*MovingPointer
}

// Recorder accumulates operation specs during circuit construction. It is
// handed to the builder closure and frozen when the closure returns. The
// first validation failure sticks and is reported by NewCircuit.
type Recorder struct {
	ops []OperationSpec
	err error
}

// fail records a construction error. The first failure sticks; anything
// recorded afterwards is ignored.
func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Deterministic records a gate applied at a geometry on every step.
func (r *Recorder) Deterministic(gate Gate, geo Geometry) {
	if r.err != nil {
		return
	}
	if gate == nil || geo == nil {
		r.fail(&ValidationError{Reason: "deterministic op requires a gate and a geometry"})
		return
	}
	r.ops = append(r.ops, OperationSpec{Kind: OpDeterministic, Gate: gate, Geometry: geo})
}

// Stochastic records a weighted choice among outcomes, decided by one draw
// (or one draw per element, for compound geometries) from the named stream.
func (r *Recorder) Stochastic(stream string, outcomes ...Outcome) {
	if r.err != nil {
		return
	}
	if err := validateStochastic(stream, outcomes); err != nil {
		r.fail(err)
		return
	}
	copied := make([]Outcome, len(outcomes))
	copy(copied, outcomes)
	r.ops = append(r.ops, OperationSpec{Kind: OpStochastic, Stream: stream, Outcomes: copied})
}

func validateStochastic(stream string, outcomes []Outcome) error {
	if !StochasticStreams[stream] {
		return &ValidationError{Reason: fmt.Sprintf(
			"stream %q may not drive stochastic decisions; allowed: %v",
			stream, sortedStochasticStreams())}
	}
	if len(outcomes) == 0 {
		return &ValidationError{Reason: "stochastic op requires at least one outcome"}
	}
	probs := make([]float64, len(outcomes))
	compound := outcomes[0].Geometry != nil && outcomes[0].Geometry.Compound()
	for i, o := range outcomes {
		if o.Gate == nil || o.Geometry == nil {
			return &ValidationError{Reason: fmt.Sprintf("outcome %d requires a gate and a geometry", i)}
		}
		if o.Prob < 0 {
			return &ValidationError{Reason: fmt.Sprintf("outcome %d has negative probability %g", i, o.Prob)}
		}
		if o.Geometry.Compound() != compound {
			return &ValidationError{Reason: "outcomes mix compound and simple geometries"}
		}
		probs[i] = o.Prob
	}
	if sum := floats.Sum(probs); sum > 1+probSumTolerance {
		return &ValidationError{Reason: fmt.Sprintf("outcome probabilities sum to %g > 1", sum)}
	}
	return nil
}

func sortedStochasticStreams() []string {
	names := make([]string, 0, len(StochasticStreams))
	for name := range StochasticStreams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewCircuit builds a circuit by running the builder closure against a fresh
// recorder and freezing the result. Construction fails fast on an invalid
// length/boundary combination (periodic requires even length) or on any
// recorder validation error.
func NewCircuit(length int, bc BoundaryCondition, stepsPerRun int, build func(*Recorder)) (*Circuit, error) {
	if _, err := ComputePermutation(length, bc); err != nil {
		return nil, err
	}
	if stepsPerRun < 1 {
		return nil, &ConfigurationError{Reason: "steps per run must be >= 1"}
	}
	if build == nil {
		return nil, &ConfigurationError{Reason: "nil builder closure"}
	}

	rec := &Recorder{}
	build(rec)
	if rec.err != nil {
		return nil, rec.err
	}

	c := &Circuit{
		length:      length,
		boundary:    bc,
		stepsPerRun: stepsPerRun,
		ops:         rec.ops,
	}
	c.pointers = collectPointers(rec.ops)
	return c, nil
}

// collectPointers gathers every pointer geometry referenced by the specs so
// expansion and execution can reset their walks.
func collectPointers(ops []OperationSpec) []*MovingPointer {
	var ptrs []*MovingPointer
	seen := map[*MovingPointer]bool{}
	add := func(geo Geometry) {
		if p, ok := geo.(*MovingPointer); ok && !seen[p] {
			seen[p] = true
			ptrs = append(ptrs, p)
		}
	}
	for _, spec := range ops {
		if spec.Geometry != nil {
			add(spec.Geometry)
		}
		for _, o := range spec.Outcomes {
			add(o.Geometry)
		}
	}
	return ptrs
}

// Length returns the system size L.
func (c *Circuit) Length() int { return c.length }

// Boundary returns the circuit's boundary condition.
func (c *Circuit) Boundary() BoundaryCondition { return c.boundary }

// StepsPerRun returns how many steps one run of the circuit template covers.
func (c *Circuit) StepsPerRun() int { return c.stepsPerRun }

// Ops returns a copy of the ordered operation specs.
func (c *Circuit) Ops() []OperationSpec {
	out := make([]OperationSpec, len(c.ops))
	copy(out, c.ops)
	return out
}

// resetPointers returns every pointer geometry to its start position so a
// fresh expansion or execution reproduces the same walk.
func (c *Circuit) resetPointers() {
	for _, p := range c.pointers {
		p.pos = p.start
	}
}

// validateProbabilities re-checks every stochastic spec's probability sums.
// Build-time validation already guarantees this; the engine re-checks
// defensively before mutating a live state.
func (c *Circuit) validateProbabilities() error {
	for _, spec := range c.ops {
		if spec.Kind != OpStochastic {
			continue
		}
		if err := validateStochastic(spec.Stream, spec.Outcomes); err != nil {
			return err
		}
	}
	return nil
}
