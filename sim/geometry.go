package sim

import "fmt"

// Geometry maps an abstract placement pattern plus a step index to concrete
// physical sites. Implementations form a closed set: the resolver dispatches
// on variant, and the resolve method is unexported so external packages
// cannot add variants or drive resolution directly.
type Geometry interface {
	// Label names the geometry for diagnostics and rendering.
	Label() string
	// Compound reports whether resolution yields a list of site-groups per
	// step (layers, all-sites) rather than a single group.
	Compound() bool

	// resolve produces the site-groups for one application. support is the
	// acting gate's declared support; only pointer variants consult it to
	// decide between a one-site and a two-site group.
	resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error)
}

// ResolveGeometry resolves geo for the given step against the acting gate and
// enforces that every site-group matches the gate's declared support.
func ResolveGeometry(geo Geometry, step, length int, bc BoundaryCondition, gate Gate) ([][]int, error) {
	groups, err := geo.resolve(step, length, bc, gate.Support())
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if len(g) != gate.Support() {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"gate %s acts on %d site(s) but geometry %s resolved %d",
				gate.Name(), gate.Support(), geo.Label(), len(g))}
		}
	}
	return groups, nil
}

// wrapSite maps any integer onto 1..length (ring arithmetic).
func wrapSite(s, length int) int {
	s = (s - 1) % length
	if s < 0 {
		s += length
	}
	return s + 1
}

// === SingleSite ===

// SingleSite places a one-site gate on a fixed physical site.
type SingleSite struct {
	Site int
}

func (g SingleSite) Label() string  { return fmt.Sprintf("site(%d)", g.Site) }
func (g SingleSite) Compound() bool { return false }

func (g SingleSite) resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error) {
	if g.Site < 1 || g.Site > length {
		return nil, &ResolutionError{Geometry: g.Label(), Step: step,
			Reason: fmt.Sprintf("site %d outside 1..%d", g.Site, length)}
	}
	return [][]int{{g.Site}}, nil
}

// === AdjacentPair ===

// AdjacentPair places a two-site gate on the bond starting at First.
// Under periodic boundary the pair (L, 1) wraps; under open boundary
// First = L has no right neighbor and fails.
type AdjacentPair struct {
	First int
}

func (g AdjacentPair) Label() string  { return fmt.Sprintf("pair(%d)", g.First) }
func (g AdjacentPair) Compound() bool { return false }

func (g AdjacentPair) resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error) {
	if g.First < 1 || g.First > length {
		return nil, &ResolutionError{Geometry: g.Label(), Step: step,
			Reason: fmt.Sprintf("site %d outside 1..%d", g.First, length)}
	}
	if g.First == length {
		if bc == BoundaryOpen {
			return nil, &ResolutionError{Geometry: g.Label(), Step: step,
				Reason: "pair exceeds open chain bound"}
		}
		return [][]int{{length, 1}}, nil
	}
	return [][]int{{g.First, g.First + 1}}, nil
}

// === AlternatingLayer ===

// LayerParity selects which sublattice of bonds an alternating layer covers.
type LayerParity string

const (
	// ParityOddFirst covers bonds whose first site is odd: (1,2), (3,4), ...
	ParityOddFirst LayerParity = "odd-first"
	// ParityEvenFirst covers bonds whose first site is even: (2,3), (4,5), ...
	// plus the wrap-around bond (L, 1) under periodic boundary.
	ParityEvenFirst LayerParity = "even-first"
)

// AlternatingLayer places a two-site gate on every bond of one parity.
// Compound: a single application covers the whole layer.
type AlternatingLayer struct {
	Parity LayerParity
}

func (g AlternatingLayer) Label() string  { return fmt.Sprintf("layer(%s)", g.Parity) }
func (g AlternatingLayer) Compound() bool { return true }

func (g AlternatingLayer) resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error) {
	var first int
	switch g.Parity {
	case ParityOddFirst:
		first = 1
	case ParityEvenFirst:
		first = 2
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown layer parity %q", g.Parity)}
	}
	groups := make([][]int, 0, length/2)
	for i := first; i+1 <= length; i += 2 {
		groups = append(groups, []int{i, i + 1})
	}
	// The wrap bond exists only on a ring, and only the even-first layer
	// reaches it. Odd length on a ring is rejected at state construction.
	if bc == BoundaryPeriodic && g.Parity == ParityEvenFirst && length%2 == 0 && length >= 2 {
		groups = append(groups, []int{length, 1})
	}
	return groups, nil
}

// === AllSites ===

// AllSites places a one-site gate on every site, one site-group per site.
type AllSites struct{}

func (g AllSites) Label() string  { return "all-sites" }
func (g AllSites) Compound() bool { return true }

func (g AllSites) resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error) {
	groups := make([][]int, length)
	for i := 1; i <= length; i++ {
		groups[i-1] = []int{i}
	}
	return groups, nil
}

// === MovingPointer ===

// MovingPointer walks the chain one site per application. It owns its
// position: resolution reads it, and only the execution path advances it,
// exactly once per applied gate. Under open boundary a two-site resolution
// that would step off the chain first resets the pointer to the walk's
// starting edge, producing a sawtooth traversal instead of an error. Under
// periodic boundary the pointer wraps modulo L.
type MovingPointer struct {
	step  int // +1 rightward, -1 leftward
	start int
	pos   int
}

// NewMovingPointerRight creates a rightward-walking pointer at start.
func NewMovingPointerRight(start int) *MovingPointer {
	return &MovingPointer{step: +1, start: start, pos: start}
}

// NewMovingPointerLeft creates a leftward-walking pointer at start.
func NewMovingPointerLeft(start int) *MovingPointer {
	return &MovingPointer{step: -1, start: start, pos: start}
}

func (g *MovingPointer) Label() string {
	if g.step > 0 {
		return fmt.Sprintf("pointer-right(%d)", g.start)
	}
	return fmt.Sprintf("pointer-left(%d)", g.start)
}

func (g *MovingPointer) Compound() bool { return false }

// Position returns the pointer's current site.
func (g *MovingPointer) Position() int { return g.pos }

func (g *MovingPointer) resolve(step, length int, bc BoundaryCondition, support int) ([][]int, error) {
	if g.pos < 1 || g.pos > length {
		return nil, &ResolutionError{Geometry: g.Label(), Step: step,
			Reason: fmt.Sprintf("pointer at %d outside 1..%d", g.pos, length)}
	}
	if support == 1 {
		return [][]int{{g.pos}}, nil
	}

	second := g.pos + g.step
	if second < 1 || second > length {
		switch bc {
		case BoundaryPeriodic:
			second = wrapSite(second, length)
		case BoundaryOpen:
			// Sawtooth: restart the walk from its edge before resolving.
			g.reset(length)
			second = g.pos + g.step
		}
	}
	return [][]int{{g.pos, second}}, nil
}

// advance moves the pointer one site along its direction, wrapping on a ring
// and restarting from the edge on an open chain. Called exactly once per
// applied gate, after the operator has been contracted into the state.
func (g *MovingPointer) advance(length int, bc BoundaryCondition) {
	g.pos += g.step
	if g.pos < 1 || g.pos > length {
		if bc == BoundaryPeriodic {
			g.pos = wrapSite(g.pos, length)
		} else {
			g.reset(length)
		}
	}
}

// reset returns the pointer to its starting edge: site 1 for a rightward
// walk, site L for a leftward walk.
func (g *MovingPointer) reset(length int) {
	if g.step > 0 {
		g.pos = 1
	} else {
		g.pos = length
	}
}
