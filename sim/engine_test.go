package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fakeState implements State without any tensor machinery: it records every
// operator application so engine behavior can be checked structurally.
type fakeState struct {
	length  int
	bc      BoundaryCondition
	perm    *SitePermutation
	rng     *StreamRegistry
	obs     *ObservableRecorder
	applied [][]int
	classes []NormClass
}

func newFakeState(t *testing.T, length int, bc BoundaryCondition, seed int64) *fakeState {
	t.Helper()
	perm, err := ComputePermutation(length, bc)
	require.NoError(t, err)
	return &fakeState{
		length: length,
		bc:     bc,
		perm:   perm,
		rng:    NewStreamRegistry(seed),
		obs:    NewObservableRecorder(),
	}
}

func (f *fakeState) Length() int                     { return f.length }
func (f *fakeState) Boundary() BoundaryCondition     { return f.bc }
func (f *fakeState) Permutation() *SitePermutation   { return f.perm }
func (f *fakeState) Streams() *StreamRegistry        { return f.rng }
func (f *fakeState) Observables() *ObservableRecorder { return f.obs }

func (f *fakeState) ApplyOperator(storageSites []int, op *mat.CDense, class NormClass) error {
	sites := append([]int(nil), storageSites...)
	f.applied = append(f.applied, sites)
	f.classes = append(f.classes, class)
	return nil
}

func (f *fakeState) LocalZeroWeight(int) (float64, error) { return 1.0, nil }

func stochasticTestCircuit(t *testing.T) *Circuit {
	t.Helper()
	c, err := NewCircuit(4, BoundaryOpen, 6, func(r *Recorder) {
		r.Deterministic(Hadamard(), AllSites{})
		r.Stochastic(StreamProjection, Outcome{Prob: 0.35, Gate: PauliZ(), Geometry: AllSites{}})
		r.Stochastic(StreamControl, Outcome{Prob: 0.5, Gate: CZ(), Geometry: AdjacentPair{First: 1}})
	})
	require.NoError(t, err)
	return c
}

func TestExecute_AlignsWithExpand(t *testing.T) {
	const seed = 31
	c := stochasticTestCircuit(t)

	expandRNG := NewStreamRegistry(seed)
	steps, err := ExpandWith(c, expandRNG)
	require.NoError(t, err)

	st := newFakeState(t, 4, BoundaryOpen, seed)
	require.NoError(t, Execute(c, st, 1, Never()))

	// Same decision-stream consumption, count and order.
	assert.Equal(t, expandRNG.Draws(StreamControl), st.rng.Draws(StreamControl))
	assert.Equal(t, expandRNG.Draws(StreamProjection), st.rng.Draws(StreamProjection))

	// Same operator sequence (open boundary: storage == physical).
	var expanded [][]int
	for _, ops := range steps {
		for _, op := range ops {
			expanded = append(expanded, op.Sites)
		}
	}
	assert.Equal(t, expanded, st.applied)
}

func TestExecute_AlignmentSurvivesSamplingGates(t *testing.T) {
	// The executor consumes the unitary stream to materialize Haar gates;
	// the decision streams must not shift because of it.
	const seed = 8
	c, err := NewCircuit(4, BoundaryOpen, 4, func(r *Recorder) {
		r.Deterministic(HaarUnitary(2), AlternatingLayer{Parity: ParityOddFirst})
		r.Stochastic(StreamProjection, Outcome{Prob: 0.5, Gate: PauliZ(), Geometry: AllSites{}})
	})
	require.NoError(t, err)

	expandRNG := NewStreamRegistry(seed)
	steps, err := ExpandWith(c, expandRNG)
	require.NoError(t, err)
	assert.Equal(t, 0, expandRNG.Draws(StreamUnitary))

	st := newFakeState(t, 4, BoundaryOpen, seed)
	require.NoError(t, Execute(c, st, 1, Never()))
	assert.Greater(t, st.rng.Draws(StreamUnitary), 0)
	assert.Equal(t, expandRNG.Draws(StreamProjection), st.rng.Draws(StreamProjection))

	var expanded [][]int
	for _, ops := range steps {
		for _, op := range ops {
			expanded = append(expanded, op.Sites)
		}
	}
	assert.Equal(t, expanded, st.applied)
}

func TestExecute_AlignmentSurvivesMeasurementSampling(t *testing.T) {
	// Stochastic measurement insertion: the projection stream decides per
	// site whether MeasureZ fires, and the executor additionally draws one
	// measurement-stream value per fired gate to pick the projector. Those
	// sampling draws must leave the decision sequence untouched.
	const seed = 3
	c, err := NewCircuit(4, BoundaryOpen, 6, func(r *Recorder) {
		r.Stochastic(StreamProjection, Outcome{Prob: 0.5, Gate: MeasureZ(), Geometry: AllSites{}})
	})
	require.NoError(t, err)

	expandRNG := NewStreamRegistry(seed)
	steps, err := ExpandWith(c, expandRNG)
	require.NoError(t, err)
	assert.Equal(t, 0, expandRNG.Draws(StreamMeasurement))

	st := newFakeState(t, 4, BoundaryOpen, seed)
	require.NoError(t, Execute(c, st, 1, Never()))

	var expanded [][]int
	for _, ops := range steps {
		for _, op := range ops {
			expanded = append(expanded, op.Sites)
		}
	}
	assert.Equal(t, expanded, st.applied)
	assert.Equal(t, expandRNG.Draws(StreamProjection), st.rng.Draws(StreamProjection))
	// One sampling draw per fired gate, on the measurement stream only.
	assert.Equal(t, len(expanded), st.rng.Draws(StreamMeasurement))
}

func TestExecute_OneMutationPerStepNoDraws(t *testing.T) {
	c, err := NewCircuit(4, BoundaryOpen, 5, func(r *Recorder) {
		r.Deterministic(PauliX(), SingleSite{Site: 2})
	})
	require.NoError(t, err)

	st := newFakeState(t, 4, BoundaryOpen, 0)
	require.NoError(t, Execute(c, st, 1, Never()))
	assert.Len(t, st.applied, 5)
	assert.Equal(t, 0, st.rng.TotalDraws())
}

func TestExecute_MapsPhysicalToStorage(t *testing.T) {
	// L=4 periodic folding: physical 4 sits at storage 2.
	c, err := NewCircuit(4, BoundaryPeriodic, 1, func(r *Recorder) {
		r.Deterministic(PauliX(), SingleSite{Site: 4})
	})
	require.NoError(t, err)

	st := newFakeState(t, 4, BoundaryPeriodic, 0)
	require.NoError(t, Execute(c, st, 1, Never()))
	require.Len(t, st.applied, 1)
	assert.Equal(t, []int{2}, st.applied[0])
}

func TestExecute_PointerContinuesAcrossRuns(t *testing.T) {
	c, err := NewCircuit(4, BoundaryOpen, 2, func(r *Recorder) {
		r.Deterministic(CZ(), NewMovingPointerRight(1))
	})
	require.NoError(t, err)

	st := newFakeState(t, 4, BoundaryOpen, 0)
	require.NoError(t, Execute(c, st, 2, Never()))
	assert.Equal(t, [][]int{{1, 2}, {2, 3}, {3, 4}, {1, 2}}, st.applied)

	// A fresh execution restarts the walk.
	st2 := newFakeState(t, 4, BoundaryOpen, 0)
	require.NoError(t, Execute(c, st2, 1, Never()))
	assert.Equal(t, [][]int{{1, 2}, {2, 3}}, st2.applied)
}

func TestExecute_RecordPolicies(t *testing.T) {
	c, err := NewCircuit(2, BoundaryOpen, 1, func(r *Recorder) {
		r.Deterministic(PauliX(), SingleSite{Site: 1})
	})
	require.NoError(t, err)

	countRecords := func(policy RecordPolicy, runs int) int {
		st := newFakeState(t, 2, BoundaryOpen, 0)
		st.obs.Track("count", func(State) float64 { return 1 })
		require.NoError(t, Execute(c, st, runs, policy))
		return len(st.obs.Values("count"))
	}

	assert.Equal(t, 0, countRecords(Never(), 5))
	assert.Equal(t, 5, countRecords(EveryRun(), 5))
	// Every 2nd run plus the always-recorded final run: 2, 4, 5.
	assert.Equal(t, 3, countRecords(EveryNth(2), 5))
	assert.Equal(t, 2, countRecords(When(func(run int) bool { return run == 1 || run == 3 }), 5))

	withStart := EveryRun()
	withStart.AtStart = true
	assert.Equal(t, 3, countRecords(withStart, 2))
}

func TestExecute_RejectsMismatchedState(t *testing.T) {
	c, err := NewCircuit(4, BoundaryOpen, 1, func(r *Recorder) {
		r.Deterministic(PauliX(), SingleSite{Site: 1})
	})
	require.NoError(t, err)

	st := newFakeState(t, 6, BoundaryOpen, 0)
	assert.Error(t, Execute(c, st, 1, Never()))

	st = newFakeState(t, 4, BoundaryPeriodic, 0)
	assert.Error(t, Execute(c, st, 1, Never()))
}

func TestExecute_RejectsBadPolicy(t *testing.T) {
	c, err := NewCircuit(2, BoundaryOpen, 1, func(r *Recorder) {
		r.Deterministic(PauliX(), SingleSite{Site: 1})
	})
	require.NoError(t, err)
	st := newFakeState(t, 2, BoundaryOpen, 0)

	assert.Error(t, Execute(c, st, 0, Never()))
	assert.Error(t, Execute(c, st, 1, EveryNth(0)))
	assert.Error(t, Execute(c, st, 1, RecordPolicy{Mode: RecordCustom}))
}

func TestExecute_ProjectiveClassForwarded(t *testing.T) {
	c, err := NewCircuit(2, BoundaryOpen, 1, func(r *Recorder) {
		r.Deterministic(MeasureZ(), SingleSite{Site: 1})
	})
	require.NoError(t, err)

	st := newFakeState(t, 2, BoundaryOpen, 0)
	require.NoError(t, Execute(c, st, 1, Never()))
	require.Len(t, st.classes, 1)
	assert.Equal(t, ClassProjective, st.classes[0])
	assert.Equal(t, 1, st.rng.Draws(StreamMeasurement))
}
