package sim

// BoundaryCondition selects how the chain of sites is closed.
type BoundaryCondition string

const (
	// BoundaryOpen is a chain with two free ends.
	BoundaryOpen BoundaryCondition = "open"
	// BoundaryPeriodic is a ring; the factored representation keeps it
	// efficient by folding the ring onto a chain.
	BoundaryPeriodic BoundaryCondition = "periodic"
)

// validBoundaryConditions maps accepted boundary condition strings.
var validBoundaryConditions = map[BoundaryCondition]bool{
	BoundaryOpen:     true,
	BoundaryPeriodic: true,
}

// IsValidBoundaryCondition returns true if bc is a recognized boundary condition.
func IsValidBoundaryCondition(bc string) bool {
	return validBoundaryConditions[BoundaryCondition(bc)]
}

// SitePermutation is the physical-site <-> storage-index mapping for a chain
// of L sites. Both directions are exposed; they are mutually inverse.
// Sites and storage positions are 1-based throughout the public API.
type SitePermutation struct {
	length        int
	physToStorage []int
	storageToPhys []int
}

// ComputePermutation builds the permutation for the given system size and
// boundary condition.
//
// Open boundary: identity. Periodic boundary: folded interleave
// (storage 1 <- physical 1, storage 2 <- physical L, storage 3 <- physical 2,
// storage 4 <- physical L-1, ...) so that the physically-wrapping pair (L, 1)
// becomes storage-adjacent. Periodic requires even L: on an odd ring the fold
// traverses the chain twice and the representation degrades.
func ComputePermutation(length int, bc BoundaryCondition) (*SitePermutation, error) {
	if length < 1 {
		return nil, &ConfigurationError{Reason: "system length must be >= 1"}
	}
	if !validBoundaryConditions[bc] {
		return nil, &ConfigurationError{Reason: "unknown boundary condition " + string(bc)}
	}

	p := &SitePermutation{
		length:        length,
		physToStorage: make([]int, length),
		storageToPhys: make([]int, length),
	}

	switch bc {
	case BoundaryOpen:
		for i := 0; i < length; i++ {
			p.physToStorage[i] = i + 1
			p.storageToPhys[i] = i + 1
		}
	case BoundaryPeriodic:
		if length%2 != 0 {
			return nil, &ConfigurationError{
				Reason: "periodic boundary requires even length",
			}
		}
		// Walk the ring from both ends at once.
		lo, hi := 1, length
		for storage := 1; storage <= length; storage++ {
			var phys int
			if storage%2 == 1 {
				phys = lo
				lo++
			} else {
				phys = hi
				hi--
			}
			p.storageToPhys[storage-1] = phys
			p.physToStorage[phys-1] = storage
		}
	}
	return p, nil
}

// Length returns the system size L.
func (p *SitePermutation) Length() int { return p.length }

// PhysToStorage maps a 1-based physical site to its 1-based storage position.
func (p *SitePermutation) PhysToStorage(site int) int {
	return p.physToStorage[site-1]
}

// StorageToPhys maps a 1-based storage position to its 1-based physical site.
func (p *SitePermutation) StorageToPhys(pos int) int {
	return p.storageToPhys[pos-1]
}
