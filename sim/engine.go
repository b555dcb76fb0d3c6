package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RecordMode selects when the observable recorder fires during execution.
type RecordMode string

const (
	// RecordNever disables periodic recording.
	RecordNever RecordMode = "never"
	// RecordEveryRun records after every run.
	RecordEveryRun RecordMode = "every-run"
	// RecordEveryNth records after every Nth run; the final run is always
	// recorded.
	RecordEveryNth RecordMode = "every-nth"
	// RecordCustom records after runs for which the predicate returns true.
	RecordCustom RecordMode = "custom"
)

// RecordPolicy controls observable recording points during execution.
type RecordPolicy struct {
	Mode RecordMode
	// N is the run period for RecordEveryNth.
	N int
	// Predicate gates recording for RecordCustom; called with the 1-based
	// run index.
	Predicate func(run int) bool
	// AtStart additionally records once before the first run.
	AtStart bool
}

// Never returns a policy that records nothing.
func Never() RecordPolicy { return RecordPolicy{Mode: RecordNever} }

// EveryRun returns a policy that records after each run.
func EveryRun() RecordPolicy { return RecordPolicy{Mode: RecordEveryRun} }

// EveryNth returns a policy that records after every nth run (and always
// after the final one).
func EveryNth(n int) RecordPolicy { return RecordPolicy{Mode: RecordEveryNth, N: n} }

// When returns a policy that records after runs accepted by pred.
func When(pred func(run int) bool) RecordPolicy {
	return RecordPolicy{Mode: RecordCustom, Predicate: pred}
}

func (p RecordPolicy) validate() error {
	switch p.Mode {
	case RecordNever, RecordEveryRun:
	case RecordEveryNth:
		if p.N < 1 {
			return &ConfigurationError{Reason: "record period must be >= 1"}
		}
	case RecordCustom:
		if p.Predicate == nil {
			return &ConfigurationError{Reason: "custom record policy requires a predicate"}
		}
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown record mode %q", p.Mode)}
	}
	return nil
}

func (p RecordPolicy) shouldRecord(run, nRuns int) bool {
	switch p.Mode {
	case RecordEveryRun:
		return true
	case RecordEveryNth:
		return run%p.N == 0 || run == nRuns
	case RecordCustom:
		return p.Predicate(run)
	}
	return false
}

// Execute repeats the circuit's step sequence nRuns times against the live
// state, consuming RNG streams in exactly the order Expand does for the same
// circuit. Each resolved application maps its physical sites to storage
// indices through the state's permutation, materializes the gate's operator,
// and contracts it into the chain under the state's truncation and the
// gate's normalization class. Pointer walks are reset once at the start of
// execution and then advance across run boundaries.
//
// Errors abort the whole execution; the state may hold a partially applied
// trajectory and must be discarded by the caller.
func Execute(c *Circuit, st State, nRuns int, policy RecordPolicy) error {
	if nRuns < 1 {
		return &ConfigurationError{Reason: "number of runs must be >= 1"}
	}
	if err := policy.validate(); err != nil {
		return err
	}
	if st.Length() != c.Length() {
		return &ConfigurationError{Reason: fmt.Sprintf(
			"state length %d does not match circuit length %d", st.Length(), c.Length())}
	}
	if st.Boundary() != c.Boundary() {
		return &ConfigurationError{Reason: fmt.Sprintf(
			"state boundary %q does not match circuit boundary %q", st.Boundary(), c.Boundary())}
	}
	if err := c.validateProbabilities(); err != nil {
		return err
	}

	rng := st.Streams()
	c.resetPointers()

	if policy.AtStart {
		st.Observables().Record(st)
	}

	for run := 1; run <= nRuns; run++ {
		for step := 1; step <= c.StepsPerRun(); step++ {
			err := resolveStep(c, step, rng, func(op ExpandedOp) error {
				return applyExpandedOp(st, op)
			})
			if err != nil {
				return fmt.Errorf("run %d step %d: %w", run, step, err)
			}
		}
		if policy.shouldRecord(run, nRuns) {
			st.Observables().Record(st)
		}
		logrus.Debugf("[run %04d] completed %d steps", run, c.StepsPerRun())
	}
	logrus.Infof("execution finished: %d run(s), %d stream draw(s)", nRuns, rng.TotalDraws())
	return nil
}

// applyExpandedOp materializes one resolved gate and contracts it into the
// state at the storage indices of its physical sites.
func applyExpandedOp(st State, op ExpandedOp) error {
	perm := st.Permutation()
	storage := make([]int, len(op.Sites))
	for i, s := range op.Sites {
		storage[i] = perm.PhysToStorage(s)
	}

	ctx := MaterializeContext{Sites: storage, Streams: st.Streams()}
	if op.Gate.Class() == ClassProjective && op.Gate.Support() == 1 {
		w, err := st.LocalZeroWeight(storage[0])
		if err != nil {
			return fmt.Errorf("gate %s: %w", op.Gate.Name(), err)
		}
		ctx.ZeroWeight = w
	}

	m, err := op.Gate.Materialize(ctx)
	if err != nil {
		return fmt.Errorf("materializing gate %s: %w", op.Gate.Name(), err)
	}
	if err := st.ApplyOperator(storage, m, op.Gate.Class()); err != nil {
		return fmt.Errorf("applying gate %s at %v: %w", op.Gate.Name(), op.Sites, err)
	}
	logrus.Debugf("[step %03d] %s at sites %v (storage %v)", op.Step, op.Label, op.Sites, storage)
	return nil
}
