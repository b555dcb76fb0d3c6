package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservableRecorder_RecordsInRegistrationOrder(t *testing.T) {
	st := newFakeState(t, 2, BoundaryOpen, 0)
	r := NewObservableRecorder()
	r.Track("b", func(State) float64 { return 2 })
	r.Track("a", func(State) float64 { return 1 })

	assert.Equal(t, []string{"b", "a"}, r.ListTracked())

	r.Record(st)
	r.Record(st)
	assert.Equal(t, []float64{2, 2}, r.Values("b"))
	assert.Equal(t, []float64{1, 1}, r.Values("a"))
}

func TestObservableRecorder_SiteFuncConsultedPerRecord(t *testing.T) {
	st := newFakeState(t, 4, BoundaryOpen, 0)
	r := NewObservableRecorder()

	site := 1
	r.TrackAt("mz", func(_ State, s int) float64 { return float64(s) }, func() int { return site })

	r.Record(st)
	site = 3
	r.Record(st)
	assert.Equal(t, []float64{1, 3}, r.Values("mz"))
}

func TestObservableRecorder_RetrackKeepsHistory(t *testing.T) {
	st := newFakeState(t, 2, BoundaryOpen, 0)
	r := NewObservableRecorder()
	r.Track("v", func(State) float64 { return 1 })
	r.Record(st)
	r.Track("v", func(State) float64 { return 9 })
	r.Record(st)

	assert.Equal(t, []string{"v"}, r.ListTracked())
	assert.Equal(t, []float64{1, 9}, r.Values("v"))
}

func TestObservableRecorder_UntrackedNameIsNil(t *testing.T) {
	r := NewObservableRecorder()
	assert.Nil(t, r.Values("missing"))
}
