package sim

// ExpandedOp is one concrete, step-stamped gate application produced by
// resolving a symbolic operation spec. Immutable; consumed by renderers and
// tests.
type ExpandedOp struct {
	// Step is the 1-based step index within the run.
	Step int
	// Gate is the acting gate.
	Gate Gate
	// Sites are the concrete 1-based physical sites, in resolution order.
	Sites []int
	// Label is the display name for renderers.
	Label string
}

// Expand resolves the symbolic circuit into concrete per-step operation
// lists, deriving the per-stream seeds from seed the same way the execution
// entry points do. Randomness is resolved exactly once per decision point;
// a step whose stochastic decisions all select the implicit no-op branch
// yields an empty list.
func Expand(c *Circuit, seed int64) ([][]ExpandedOp, error) {
	return ExpandWith(c, NewStreamRegistry(seed))
}

// ExpandWith is Expand with an explicit registry, for callers that need
// explicit per-stream seeds or the aliased legacy mode.
func ExpandWith(c *Circuit, rng *StreamRegistry) ([][]ExpandedOp, error) {
	c.resetPointers()
	steps := make([][]ExpandedOp, 0, c.stepsPerRun)
	for step := 1; step <= c.stepsPerRun; step++ {
		ops := make([]ExpandedOp, 0)
		err := resolveStep(c, step, rng, func(op ExpandedOp) error {
			ops = append(ops, op)
			return nil
		})
		if err != nil {
			return nil, err
		}
		steps = append(steps, ops)
	}
	return steps, nil
}

// resolveStep walks the operation specs of one step in document order,
// consuming RNG draws as it goes, and hands each resolved application to
// apply. It is the single source of truth for draw order: the expander and
// the execution engine both run their steps through it, so they can never
// diverge in draw count or order for the same circuit.
//
// Pointer geometries are advanced here, after apply returns, exactly once
// per emitted application.
func resolveStep(c *Circuit, step int, rng *StreamRegistry, apply func(ExpandedOp) error) error {
	for _, spec := range c.ops {
		switch spec.Kind {
		case OpDeterministic:
			if err := resolveApplication(c, step, spec.Gate, spec.Geometry, apply); err != nil {
				return err
			}

		case OpStochastic:
			if err := resolveStochastic(c, step, spec, rng, apply); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveApplication resolves one gate/geometry application, emits one
// ExpandedOp per site-group, and advances a pointer geometry afterwards.
func resolveApplication(c *Circuit, step int, gate Gate, geo Geometry, apply func(ExpandedOp) error) error {
	groups, err := ResolveGeometry(geo, step, c.length, c.boundary, gate)
	if err != nil {
		return err
	}
	for _, sites := range groups {
		op := ExpandedOp{Step: step, Gate: gate, Sites: sites, Label: gate.Name()}
		if err := apply(op); err != nil {
			return err
		}
	}
	if p, ok := geo.(*MovingPointer); ok && len(groups) > 0 {
		p.advance(c.length, c.boundary)
	}
	return nil
}

func resolveStochastic(c *Circuit, step int, spec OperationSpec, rng *StreamRegistry, apply func(ExpandedOp) error) error {
	if !spec.Outcomes[0].Geometry.Compound() {
		// Simple geometries: one draw decides the whole application.
		u := rng.Draw(spec.Stream)
		k := selectOutcome(u, spec.Outcomes)
		if k < 0 {
			return nil
		}
		o := spec.Outcomes[k]
		return resolveApplication(c, step, o.Gate, o.Geometry, apply)
	}

	// Compound geometries: resolve every outcome up front, then decide each
	// element independently with its own draw. This models per-site (or
	// per-bond) independent randomness, so draws are counted per element.
	resolved := make([][][]int, len(spec.Outcomes))
	for i, o := range spec.Outcomes {
		groups, err := ResolveGeometry(o.Geometry, step, c.length, c.boundary, o.Gate)
		if err != nil {
			return err
		}
		resolved[i] = groups
		if len(groups) != len(resolved[0]) {
			return &ValidationError{Reason: "stochastic outcomes resolve to differing element counts"}
		}
	}
	for e := range resolved[0] {
		u := rng.Draw(spec.Stream)
		k := selectOutcome(u, spec.Outcomes)
		if k < 0 {
			continue
		}
		o := spec.Outcomes[k]
		op := ExpandedOp{Step: step, Gate: o.Gate, Sites: resolved[k][e], Label: o.Gate.Name()}
		if err := apply(op); err != nil {
			return err
		}
	}
	return nil
}

// selectOutcome picks the first outcome whose cumulative probability strictly
// exceeds the draw, or -1 for the implicit no-op remainder. A draw exactly
// equal to a cumulative sum falls through to the next branch.
func selectOutcome(u float64, outcomes []Outcome) int {
	cum := 0.0
	for i, o := range outcomes {
		cum += o.Prob
		if u < cum {
			return i
		}
	}
	return -1
}
