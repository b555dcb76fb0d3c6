package mps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mps-sim/mps-sim/sim"
)

func TestObservableAdapters(t *testing.T) {
	st := newTestState(t, 2, sim.BoundaryOpen)
	require.NoError(t, st.ApplyOperator([]int{1}, gateMatrix(t, sim.Hadamard()), sim.ClassUnitary))
	require.NoError(t, st.ApplyOperator([]int{1, 2}, gateMatrix(t, sim.CNOT()), sim.ClassUnitary))

	assert.InDelta(t, 1.0, NormObservable()(st), 1e-10)
	assert.InDelta(t, math.Log(2), EntropyObservable(1)(st), 1e-10)
	assert.InDelta(t, 0.0, MagnetizationObservable(2)(st), 1e-10)
	assert.InDelta(t, 0.0, MagnetizationAt()(st, 1), 1e-10)
}

func TestObservableAdapters_RecordThroughEngine(t *testing.T) {
	c, err := sim.NewCircuit(2, sim.BoundaryOpen, 1, func(r *sim.Recorder) {
		r.Deterministic(sim.Hadamard(), sim.SingleSite{Site: 1})
		r.Deterministic(sim.CNOT(), sim.AdjacentPair{First: 1})
	})
	require.NoError(t, err)

	st, err := NewState(Config{Length: 2, Boundary: sim.BoundaryOpen}, sim.NewStreamRegistry(1))
	require.NoError(t, err)
	st.Observables().Track("norm", NormObservable())
	st.Observables().Track("entropy", EntropyObservable(1))

	require.NoError(t, sim.Execute(c, st, 3, sim.EveryRun()))

	norms := st.Observables().Values("norm")
	require.Len(t, norms, 3)
	for _, n := range norms {
		assert.InDelta(t, 1.0, n, 1e-10)
	}
	entropies := st.Observables().Values("entropy")
	require.Len(t, entropies, 3)
	assert.InDelta(t, math.Log(2), entropies[0], 1e-10)
}
