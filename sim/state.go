package sim

import "gonum.org/v1/gonum/mat"

// State is the engine's view of a live factored state. The concrete
// bounded-rank implementation lives in sim/mps; the engine only needs
// geometry-compatible application of operators plus access to the shared
// permutation, RNG registry, and observable recorder the state owns.
//
// A State is created once per simulation run, mutated in place by the
// execution engine, and discarded when the run ends.
type State interface {
	// Length returns the system size L.
	Length() int
	// Boundary returns the state's boundary condition.
	Boundary() BoundaryCondition
	// Permutation returns the physical <-> storage site mapping.
	Permutation() *SitePermutation
	// Streams returns the RNG registry the state was constructed with.
	Streams() *StreamRegistry
	// Observables returns the state's observable recorder.
	Observables() *ObservableRecorder

	// ApplyOperator contracts op into the chain at the given 1-based storage
	// sites (1 or 2, storage order as resolved), truncating by the state's
	// cutoff and maximum rank. Projective-class applications renormalize the
	// state to unit norm after truncation; unitary-class applications do not.
	ApplyOperator(storageSites []int, op *mat.CDense, class NormClass) error

	// LocalZeroWeight returns the probability weight of the local |0> basis
	// state at the given 1-based storage site.
	LocalZeroWeight(storageSite int) (float64, error)
}
