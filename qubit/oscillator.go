// Package qubit implements the subsystems composite Hilbert spaces are
// assembled from: harmonic oscillators, two-level atoms, and transmons.
//
// Every type satisfies qspace.Subsystem. Operators are expressed in the
// subsystem's own bare eigenbasis with the ground state first, and parameter
// updates that would leave the physical range fail without changing the
// subsystem.
package qubit

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/mat"
)

// Oscillator is a harmonic oscillator with an optional Kerr nonlinearity,
// truncated to its dim lowest levels. Level j has energy
// freq*j + kerr*j*(j-1), with the zero point energy dropped.
type Oscillator struct {
	dim     int
	freq    float64
	kerr    float64
	version uint64
}

// NewOscillator returns an oscillator of frequency freq and Kerr coefficient
// kerr, truncated to dim levels.
func NewOscillator(dim int, freq, kerr float64) (*Oscillator, error) {
	if dim < 2 {
		return nil, errors.Errorf("dimension %d", dim)
	}
	o := &Oscillator{dim: dim}
	if err := o.validate(freq, kerr); err != nil {
		return nil, err
	}
	o.freq, o.kerr = freq, kerr
	return o, nil
}

// validate rejects parameters whose spectrum is not strictly ascending within
// the truncation, which a negative Kerr coefficient causes at high levels.
func (o *Oscillator) validate(freq, kerr float64) error {
	if freq <= 0 {
		return errors.Errorf("frequency %f not positive", freq)
	}
	if spacing := freq + 2*kerr*float64(o.dim-2); spacing <= 0 {
		return errors.Errorf("kerr %f collapses the spectrum within the %d level truncation", kerr, o.dim)
	}
	return nil
}

// Dim returns the truncation dimension.
func (o *Oscillator) Dim() int { return o.dim }

// BareEigenvalues returns freq*j + kerr*j*(j-1) for j up to the truncation.
func (o *Oscillator) BareEigenvalues() ([]float64, error) {
	evs := make([]float64, o.dim)
	for j := range evs {
		jf := float64(j)
		evs[j] = o.freq*jf + o.kerr*jf*(jf-1)
	}
	return evs, nil
}

// Operator returns the annihilation operator "a", the creation operator
// "adag", or the number operator "n".
func (o *Oscillator) Operator(name string) (*mat.COO, error) {
	switch name {
	case "a":
		return lowering(o.dim), nil
	case "adag":
		return lowering(o.dim).Dagger(), nil
	case "n":
		diag := make([]complex128, o.dim)
		for j := range diag {
			diag[j] = complex(float64(j), 0)
		}
		return mat.COODiag(diag), nil
	}
	return nil, errors.Errorf("oscillator operator %q", name)
}

// lowering returns the truncated annihilation operator, with matrix elements
// <j-1| a |j> = sqrt(j).
func lowering(dim int) *mat.COO {
	dense := make([][]complex128, dim)
	for i := range dense {
		dense[i] = make([]complex128, dim)
	}
	for j := 1; j < dim; j++ {
		dense[j-1][j] = complex(math.Sqrt(float64(j)), 0)
	}
	return mat.M(dense)
}

// SetParameter updates "freq" or "kerr".
func (o *Oscillator) SetParameter(name string, value float64) error {
	freq, kerr := o.freq, o.kerr
	switch name {
	case "freq":
		freq = value
	case "kerr":
		kerr = value
	default:
		return errors.Errorf("oscillator parameter %q", name)
	}
	if err := o.validate(freq, kerr); err != nil {
		return err
	}
	o.freq, o.kerr = freq, kerr
	o.version++
	return nil
}

// Version increases on every successful SetParameter.
func (o *Oscillator) Version() uint64 { return o.version }

// Clone returns an independent copy.
func (o *Oscillator) Clone() qspace.Subsystem {
	c := *o
	return &c
}
