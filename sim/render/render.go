// Package render formats expanded circuits as text diagrams. It consumes
// only the expansion output and never re-derives randomness: a diagram and a
// simulation from the same seeds always describe the same trajectory.
package render

import (
	"fmt"
	"strings"

	"github.com/mps-sim/mps-sim/sim"
)

const cellWidth = 5

// ASCII renders the expanded step list as a site-by-step grid. Each row is
// one step; a cell shows the label of the gate touching that site, and a
// two-site application links its pair with dashes. Steps whose stochastic
// decisions all selected the no-op branch render as empty rows.
func ASCII(length int, steps [][]sim.ExpandedOp) string {
	var b strings.Builder

	b.WriteString("     ")
	for s := 1; s <= length; s++ {
		fmt.Fprintf(&b, "%-*s", cellWidth, fmt.Sprintf("q%d", s))
	}
	b.WriteByte('\n')

	for i, ops := range steps {
		cells := make([]string, length)
		links := make([]bool, length) // links[k]: dash between site k+1 and k+2
		for j := range cells {
			cells[j] = "."
		}
		for _, op := range ops {
			for _, site := range op.Sites {
				cells[site-1] = op.Label
			}
			if len(op.Sites) == 2 {
				lo, hi := op.Sites[0], op.Sites[1]
				if lo > hi {
					lo, hi = hi, lo
				}
				for k := lo; k < hi; k++ {
					links[k-1] = true
				}
			}
		}
		fmt.Fprintf(&b, "t=%-3d", i+1)
		for j, cell := range cells {
			pad := cellWidth - len(cell)
			b.WriteString(cell)
			filler := " "
			if j < length-1 && links[j] {
				filler = "-"
			}
			b.WriteString(strings.Repeat(filler, pad))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary lists each step's applications on one line, in resolution order.
func Summary(steps [][]sim.ExpandedOp) string {
	var b strings.Builder
	for i, ops := range steps {
		fmt.Fprintf(&b, "step %d:", i+1)
		if len(ops) == 0 {
			b.WriteString(" (none)")
		}
		for _, op := range ops {
			fmt.Fprintf(&b, " %s%v", op.Label, op.Sites)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
