package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mps-sim/mps-sim/sim"
	"github.com/mps-sim/mps-sim/sim/render"
)

var (
	drawSpecPath string
	drawSummary  bool
)

// drawCmd expands a run spec's circuit and renders it as a text diagram.
// The expansion consumes the same streams in the same order as execution,
// so the diagram shows the exact trajectory a run with these seeds takes.
var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Expand a circuit and render it as a text diagram",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := sim.LoadRunSpec(drawSpecPath)
		if err != nil {
			logrus.Fatalf("Failed to load run spec: %v", err)
		}
		if err := spec.Validate(); err != nil {
			logrus.Fatalf("Invalid run spec: %v", err)
		}
		circuit, err := spec.BuildCircuit()
		if err != nil {
			logrus.Fatalf("Failed to build circuit: %v", err)
		}
		rng, err := spec.BuildRegistry()
		if err != nil {
			logrus.Fatalf("Failed to build RNG registry: %v", err)
		}

		steps, err := sim.ExpandWith(circuit, rng)
		if err != nil {
			logrus.Fatalf("Expansion failed: %v", err)
		}
		if drawSummary {
			fmt.Print(render.Summary(steps))
			return
		}
		fmt.Print(render.ASCII(spec.Length, steps))
	},
}

func init() {
	drawCmd.Flags().StringVar(&drawSpecPath, "spec", "", "Path to YAML run spec")
	drawCmd.Flags().BoolVar(&drawSummary, "summary", false, "Print one line per step instead of a grid")
	_ = drawCmd.MarkFlagRequired("spec")

	rootCmd.AddCommand(drawCmd)
}
