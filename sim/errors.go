package sim

import "fmt"

// ConfigurationError reports an invalid construction-time parameter: a bad
// boundary condition, an odd length under periodic boundary, a missing RNG
// stream seed. Never recoverable; surfaced immediately to the caller.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// ValidationError reports an invalid circuit declaration: a probability sum
// above 1, an empty outcome list, an unknown RNG stream name, a gate/geometry
// arity mismatch. Raised at builder call time or first resolution attempt.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ResolutionError reports a geometry that cannot produce concrete sites: a
// site out of range, or a two-site pattern exceeding the chain bounds under
// open boundary. Carries the offending geometry and step for diagnosability.
type ResolutionError struct {
	Geometry string
	Step     int
	Reason   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution: %s at step %d: %s", e.Geometry, e.Step, e.Reason)
}
