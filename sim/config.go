package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeometryConfig declares a placement pattern in a YAML run spec.
// Exactly the fields relevant to Type are consulted.
type GeometryConfig struct {
	Type   string `yaml:"type"`   // site, pair, layer, all-sites, pointer-left, pointer-right
	Site   int    `yaml:"site"`   // for site
	First  int    `yaml:"first"`  // for pair
	Parity string `yaml:"parity"` // for layer: odd-first, even-first
	Start  int    `yaml:"start"`  // for pointer variants
}

// validGeometryTypes maps accepted geometry type strings.
var validGeometryTypes = map[string]bool{
	"site": true, "pair": true, "layer": true,
	"all-sites": true, "pointer-left": true, "pointer-right": true,
}

// Build converts the config into a Geometry value.
func (g GeometryConfig) Build() (Geometry, error) {
	switch g.Type {
	case "site":
		return SingleSite{Site: g.Site}, nil
	case "pair":
		return AdjacentPair{First: g.First}, nil
	case "layer":
		return AlternatingLayer{Parity: LayerParity(g.Parity)}, nil
	case "all-sites":
		return AllSites{}, nil
	case "pointer-left":
		return NewMovingPointerLeft(g.Start), nil
	case "pointer-right":
		return NewMovingPointerRight(g.Start), nil
	}
	return nil, &ValidationError{Reason: fmt.Sprintf("unknown geometry type %q", g.Type)}
}

// OutcomeConfig declares one weighted branch of a stochastic operation.
type OutcomeConfig struct {
	Prob     float64        `yaml:"prob"`
	Gate     string         `yaml:"gate"`
	Geometry GeometryConfig `yaml:"geometry"`
}

// OperationConfig declares one symbolic operation. Deterministic entries set
// gate+geometry; stochastic entries set stream+outcomes.
type OperationConfig struct {
	Gate     string          `yaml:"gate"`
	Geometry *GeometryConfig `yaml:"geometry"`
	Stream   string          `yaml:"stream"`
	Outcomes []OutcomeConfig `yaml:"outcomes"`
}

// RunSpec is a complete simulation description, loadable from a YAML file.
type RunSpec struct {
	Length      int    `yaml:"length"`
	Boundary    string `yaml:"boundary"`
	StepsPerRun int    `yaml:"steps_per_run"`
	Runs        int    `yaml:"runs"`

	// Seed derives all stream seeds; StreamSeeds overrides them explicitly
	// (all physics streams required when set).
	Seed        int64            `yaml:"seed"`
	StreamSeeds map[string]int64 `yaml:"stream_seeds"`

	Cutoff  float64 `yaml:"cutoff"`
	MaxRank int     `yaml:"max_rank"`
	Init    string  `yaml:"init"` // zeros (default) or random

	Operations []OperationConfig `yaml:"operations"`

	// Observables: norm, entropy:<bond>, magnetization:<site>.
	Observables []string `yaml:"observables"`

	// Record: never, every-run, every-nth:<n>.
	Record string `yaml:"record"`
}

// LoadRunSpec reads and parses a YAML run spec file.
func LoadRunSpec(path string) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run spec: %w", err)
	}
	var spec RunSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing run spec: %w", err)
	}
	return &spec, nil
}

// Validate checks structural validity of the spec before any building.
func (s *RunSpec) Validate() error {
	if s.Length < 1 {
		return &ConfigurationError{Reason: "length must be >= 1"}
	}
	if !IsValidBoundaryCondition(s.Boundary) {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown boundary condition %q", s.Boundary)}
	}
	if s.StepsPerRun < 1 {
		return &ConfigurationError{Reason: "steps_per_run must be >= 1"}
	}
	if s.Runs < 1 {
		return &ConfigurationError{Reason: "runs must be >= 1"}
	}
	if s.Init != "" && s.Init != "zeros" && s.Init != "random" {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown init %q", s.Init)}
	}
	if len(s.Operations) == 0 {
		return &ValidationError{Reason: "run spec declares no operations"}
	}
	for i, op := range s.Operations {
		deterministic := op.Gate != "" || op.Geometry != nil
		stochastic := op.Stream != "" || len(op.Outcomes) > 0
		if deterministic == stochastic {
			return &ValidationError{Reason: fmt.Sprintf(
				"operation %d must set either gate+geometry or stream+outcomes", i)}
		}
		if op.Geometry != nil && !validGeometryTypes[op.Geometry.Type] {
			return &ValidationError{Reason: fmt.Sprintf(
				"operation %d: unknown geometry type %q", i, op.Geometry.Type)}
		}
		for j, o := range op.Outcomes {
			if !validGeometryTypes[o.Geometry.Type] {
				return &ValidationError{Reason: fmt.Sprintf(
					"operation %d outcome %d: unknown geometry type %q", i, j, o.Geometry.Type)}
			}
		}
	}
	if _, err := s.recordPolicy(); err != nil {
		return err
	}
	return nil
}

// BuildCircuit freezes the spec's operation list into a Circuit.
func (s *RunSpec) BuildCircuit() (*Circuit, error) {
	return NewCircuit(s.Length, BoundaryCondition(s.Boundary), s.StepsPerRun, func(r *Recorder) {
		for _, opCfg := range s.Operations {
			if opCfg.Stream == "" {
				gate, err := GateByName(opCfg.Gate)
				if err != nil {
					r.fail(err)
					return
				}
				geo, err := opCfg.Geometry.Build()
				if err != nil {
					r.fail(err)
					return
				}
				r.Deterministic(gate, geo)
				continue
			}
			outcomes := make([]Outcome, 0, len(opCfg.Outcomes))
			for _, oCfg := range opCfg.Outcomes {
				gate, err := GateByName(oCfg.Gate)
				if err != nil {
					r.fail(err)
					return
				}
				geo, err := oCfg.Geometry.Build()
				if err != nil {
					r.fail(err)
					return
				}
				outcomes = append(outcomes, Outcome{Prob: oCfg.Prob, Gate: gate, Geometry: geo})
			}
			r.Stochastic(opCfg.Stream, outcomes...)
		}
	})
}

// BuildRegistry constructs the RNG stream registry from the spec's seeds.
func (s *RunSpec) BuildRegistry() (*StreamRegistry, error) {
	if len(s.StreamSeeds) > 0 {
		return NewStreamRegistryWithSeeds(s.StreamSeeds)
	}
	return NewStreamRegistry(s.Seed), nil
}

// RecordPolicy parses the spec's record directive.
func (s *RunSpec) RecordPolicy() (RecordPolicy, error) {
	return s.recordPolicy()
}

func (s *RunSpec) recordPolicy() (RecordPolicy, error) {
	switch {
	case s.Record == "" || s.Record == "every-run":
		return EveryRun(), nil
	case s.Record == "never":
		return Never(), nil
	case strings.HasPrefix(s.Record, "every-nth:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s.Record, "every-nth:"))
		if err != nil || n < 1 {
			return RecordPolicy{}, &ConfigurationError{
				Reason: fmt.Sprintf("bad record period in %q", s.Record)}
		}
		return EveryNth(n), nil
	}
	return RecordPolicy{}, &ConfigurationError{Reason: fmt.Sprintf("unknown record policy %q", s.Record)}
}
