package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mps-sim/mps-sim/sim"
)

func expandedSteps(t *testing.T) [][]sim.ExpandedOp {
	t.Helper()
	c, err := sim.NewCircuit(4, sim.BoundaryOpen, 3, func(r *sim.Recorder) {
		r.Deterministic(sim.Hadamard(), sim.SingleSite{Site: 2})
		r.Deterministic(sim.CZ(), sim.AdjacentPair{First: 3})
	})
	require.NoError(t, err)
	steps, err := sim.Expand(c, 0)
	require.NoError(t, err)
	return steps
}

func TestASCII_Grid(t *testing.T) {
	out := ASCII(4, expandedSteps(t))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4) // header plus three steps

	header := lines[0]
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		assert.Contains(t, header, q)
	}
	for _, row := range lines[1:] {
		assert.Contains(t, row, "H")
		assert.Contains(t, row, "CZ")
		// The two-site application links its pair with dashes.
		assert.Contains(t, row, "CZ---")
	}
	assert.True(t, strings.HasPrefix(lines[1], "t=1"))
	assert.True(t, strings.HasPrefix(lines[3], "t=3"))
}

func TestASCII_EmptyStepRendersDots(t *testing.T) {
	out := ASCII(2, [][]sim.ExpandedOp{{}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ".")
	assert.NotContains(t, lines[1], "-")
}

func TestSummary_ListsApplications(t *testing.T) {
	out := Summary(expandedSteps(t))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "step 1: H[2] CZ[3 4]", lines[0])
	assert.Equal(t, "step 3: H[2] CZ[3 4]", lines[2])
}

func TestSummary_EmptyStep(t *testing.T) {
	out := Summary([][]sim.ExpandedOp{{}, nil})
	assert.Equal(t, "step 1: (none)\nstep 2: (none)\n", out)
}
