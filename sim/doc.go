// Package sim provides the symbolic circuit description and deterministic
// execution engine for quantum circuits simulated on a bounded-rank factored
// state.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - circuit.go: the builder-closure recorder and the frozen Circuit value
//   - expand.go: symbolic-to-concrete expansion and the shared step resolver
//   - engine.go: execution against a live state and the record policy
//
// # Architecture
//
// The sim package defines interfaces and the resolution machinery;
// implementations live in sub-packages:
//   - sim/mps/: the bounded-rank factored-state (matrix product state) backend
//   - sim/render/: diagram rendering over the expansion output
//
// A circuit is built once via a closure, then consumed two ways from the
// same symbolic value: Expand produces a concrete, step-stamped operation
// list for renderers, and Execute applies the same operator sequence to a
// live state. Both paths run every step through one shared resolver, so for
// a fixed circuit and fixed stream seeds they consume the RNG streams in
// identical count and order. That is the reproducibility contract: a diagram
// and a simulation with the same seeds describe the same trajectory.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Gate: declared support, normalization class, on-demand operator
//   - Geometry: placement pattern resolved per step to concrete sites
//   - State: the engine's view of the live factored state
//
// Randomness is partitioned into named streams (control, projection,
// unitary, measurement, state-init), each independently seeded, so extra
// sampling consumption in the executor never shifts the decision sequence.
package sim
