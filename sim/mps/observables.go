package mps

import "github.com/mps-sim/mps-sim/sim"

// NormObservable tracks the state 2-norm.
func NormObservable() sim.ObservableFunc {
	return func(st sim.State) float64 {
		return st.(*State).Norm()
	}
}

// EntropyObservable tracks the entanglement entropy at a storage bond.
func EntropyObservable(bond int) sim.ObservableFunc {
	return func(st sim.State) float64 {
		return st.(*State).EntanglementEntropy(bond)
	}
}

// MagnetizationObservable tracks <Z> at a fixed physical site.
func MagnetizationObservable(site int) sim.ObservableFunc {
	return func(st sim.State) float64 {
		return st.(*State).Magnetization(site)
	}
}

// MagnetizationAt is the site-parameterized form of the <Z> observable, for
// use with a sampling-site callback.
func MagnetizationAt() sim.SiteObservableFunc {
	return func(st sim.State, site int) float64 {
		return st.(*State).Magnetization(site)
	}
}
