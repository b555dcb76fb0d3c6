package sim

import (
	"hash/fnv"
	"math/rand"
	"sort"
)

// === Stream names ===

const (
	// StreamControl drives stochastic control-layer decisions (which gate,
	// if any, fires at a decision point).
	StreamControl = "control"

	// StreamProjection drives projection decisions (whether a projective
	// operator is inserted at a site or bond).
	StreamProjection = "projection"

	// StreamUnitary feeds random-unitary sampling (Haar draws).
	StreamUnitary = "unitary"

	// StreamMeasurement feeds measurement-outcome sampling.
	StreamMeasurement = "measurement"

	// StreamStateInit feeds random initial-state preparation.
	StreamStateInit = "state-init"
)

// PhysicsStreams lists every stream whose consumption affects the physical
// trajectory. Registries constructed from explicit seeds must seed all of
// them; there are no silent defaults.
var PhysicsStreams = []string{
	StreamControl,
	StreamProjection,
	StreamUnitary,
	StreamMeasurement,
	StreamStateInit,
}

// StochasticStreams is the subset of PhysicsStreams a stochastic operation
// spec may name as its decision source. Sampling streams (unitary,
// measurement, state-init) are consumed during operator materialization or
// state preparation, which only the executor performs; letting one double as
// a decision stream would desynchronize the expander and the executor after
// the first selected outcome.
var StochasticStreams = map[string]bool{
	StreamControl:    true,
	StreamProjection: true,
}

// === StreamRegistry ===

// StreamRegistry holds a fixed set of independently seeded pseudorandom
// streams, one per named randomness source. The set of streams is frozen at
// construction; each stream's sequence is fully determined by its seed and
// call order, independent of any other stream's consumption.
//
// Thread-safety: NOT thread-safe. The execution model is single-threaded.
type StreamRegistry struct {
	streams map[string]*rand.Rand
	counts  map[string]int
}

// NewStreamRegistry derives one seed per physics stream from a master seed
// (masterSeed XOR fnv1a64(streamName)) and seeds all streams independently.
// The same master seed always reproduces the same per-stream sequences.
func NewStreamRegistry(masterSeed int64) *StreamRegistry {
	seeds := make(map[string]int64, len(PhysicsStreams))
	for _, name := range PhysicsStreams {
		seeds[name] = masterSeed ^ fnv1a64(name)
	}
	r, _ := NewStreamRegistryWithSeeds(seeds)
	return r
}

// NewStreamRegistryWithSeeds constructs a registry from explicit per-stream
// seeds. Every physics stream must be present: a stream that affects physics
// may never fall back to an implicit seed.
func NewStreamRegistryWithSeeds(seeds map[string]int64) (*StreamRegistry, error) {
	for _, name := range PhysicsStreams {
		if _, ok := seeds[name]; !ok {
			return nil, &ConfigurationError{Reason: "missing seed for RNG stream " + name}
		}
	}
	r := &StreamRegistry{
		streams: make(map[string]*rand.Rand, len(seeds)),
		counts:  make(map[string]int, len(seeds)),
	}
	for name, seed := range seeds {
		r.streams[name] = rand.New(rand.NewSource(seed))
	}
	return r, nil
}

// NewAliasedStreamRegistry maps every listed stream name onto one shared
// generator seeded with seed, and seeds the remaining physics streams
// independently (derived from seed as in NewStreamRegistry). Used only to
// reproduce legacy single-stream reference trajectories bit-for-bit; never
// the default construction.
func NewAliasedStreamRegistry(seed int64, aliased ...string) (*StreamRegistry, error) {
	r := NewStreamRegistry(seed)
	if len(aliased) == 0 {
		return r, nil
	}
	shared := rand.New(rand.NewSource(seed))
	for _, name := range aliased {
		if _, ok := r.streams[name]; !ok {
			return nil, &ConfigurationError{Reason: "unknown RNG stream " + name}
		}
		r.streams[name] = shared
	}
	return r, nil
}

// Draw returns the next value in [0, 1) from the named stream.
// Panics on an unknown stream name: stream names are compile-time constants
// and an unknown one is a programming error, not an input error.
func (r *StreamRegistry) Draw(stream string) float64 {
	gen, ok := r.streams[stream]
	if !ok {
		panic("sim: draw from unknown RNG stream " + stream)
	}
	r.counts[stream]++
	return gen.Float64()
}

// DrawFloats returns the next n values in [0, 1) from the named stream.
func (r *StreamRegistry) DrawFloats(stream string, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Draw(stream)
	}
	return out
}

// Draws reports how many values have been consumed from the named stream.
func (r *StreamRegistry) Draws(stream string) int {
	return r.counts[stream]
}

// TotalDraws reports the total consumption across all streams.
func (r *StreamRegistry) TotalDraws() int {
	total := 0
	for _, c := range r.counts {
		total += c
	}
	return total
}

// StreamNames returns the registered stream names in sorted order.
func (r *StreamRegistry) StreamNames() []string {
	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
