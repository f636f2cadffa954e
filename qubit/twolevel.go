package qubit

import (
	"github.com/pkg/errors"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/mat"
)

// TwoLevel is a two-level system with energy splitting e01 between its ground
// and excited state. Operators are written with the ground state first, so
// that "sp" raises the ground state to the excited state and "sz" is +1 on
// the ground state.
type TwoLevel struct {
	e01     float64
	version uint64
}

// NewTwoLevel returns a two-level system with splitting e01.
func NewTwoLevel(e01 float64) (*TwoLevel, error) {
	if e01 < 0 {
		return nil, errors.Errorf("splitting %f negative", e01)
	}
	return &TwoLevel{e01: e01}, nil
}

// Dim returns 2.
func (s *TwoLevel) Dim() int { return 2 }

// BareEigenvalues returns {0, e01}.
func (s *TwoLevel) BareEigenvalues() ([]float64, error) {
	return []float64{0, s.e01}, nil
}

// Operator returns the raising operator "sp", the lowering operator "sm", or
// one of the Pauli operators "sx", "sy", "sz".
func (s *TwoLevel) Operator(name string) (*mat.COO, error) {
	switch name {
	case "sp":
		return mat.M([][]complex128{
			{0, 0},
			{1, 0},
		}), nil
	case "sm":
		return mat.M([][]complex128{
			{0, 1},
			{0, 0},
		}), nil
	case "sx":
		return mat.M(mat.PauliX), nil
	case "sy":
		return mat.M(mat.PauliY), nil
	case "sz":
		return mat.M(mat.PauliZ), nil
	}
	return nil, errors.Errorf("two level operator %q", name)
}

// SetParameter updates "e01".
func (s *TwoLevel) SetParameter(name string, value float64) error {
	if name != "e01" {
		return errors.Errorf("two level parameter %q", name)
	}
	if value < 0 {
		return errors.Errorf("splitting %f negative", value)
	}
	s.e01 = value
	s.version++
	return nil
}

// Version increases on every successful SetParameter.
func (s *TwoLevel) Version() uint64 { return s.version }

// Clone returns an independent copy.
func (s *TwoLevel) Clone() qspace.Subsystem {
	c := *s
	return &c
}
