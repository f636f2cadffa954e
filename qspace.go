// Package qspace assembles composite Hilbert spaces from quantum subsystems
// and computes their dressed spectra.
//
// A composite space is the tensor product of its subsystems in the order they
// are given. Bare product states are indexed with the last subsystem varying
// fastest, operators on individual subsystems are embedded by Kronecker
// products with identity padding, and dressed states, the eigenstates of the
// full interacting Hamiltonian, are related back to bare product states by
// overlap maximization.
// See Circuit quantum electrodynamics, Blais, Grimsmo, Girvin, and Wallraff,
// Rev. Mod. Phys. 93, 025005.
package qspace

import (
	"github.com/ksaito/qspace/mat"
)

// Subsystem is a quantum system with a truncated spectrum, expressed in its
// own bare eigenbasis.
//
// Implementations are not safe for concurrent use. Concurrent consumers such
// as parameter sweeps work on private copies obtained from Clone.
type Subsystem interface {
	// Dim returns the truncation dimension.
	Dim() int

	// BareEigenvalues returns the Dim lowest eigenvalues in ascending order.
	BareEigenvalues() ([]float64, error)

	// Operator returns the named operator as a Dim x Dim matrix in the bare
	// eigenbasis. Unknown names are an error.
	Operator(name string) (*mat.COO, error)

	// SetParameter updates the named physical parameter, invalidating the
	// bare spectrum. Unknown names and unphysical values are an error.
	SetParameter(name string, value float64) error

	// Version increases on every successful SetParameter. Consumers compare
	// versions to detect stale derived state.
	Version() uint64

	// Clone returns an independent deep copy, including cached spectra.
	Clone() Subsystem
}
