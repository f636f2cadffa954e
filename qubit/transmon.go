package qubit

import (
	"math/cmplx"
	"slices"

	"github.com/pkg/errors"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/mat"
)

// Transmon is a Cooper pair box qubit in the transmon regime. Its spectrum is
// computed numerically in the charge basis with Cooper pair numbers in
// [-ncut, ncut] and truncated to the dim lowest eigenstates, with the ground
// state energy shifted to zero. The spectrum is controlled by the Josephson
// energy EJ, the charging energy EC and the offset charge ng.
// See Charge-insensitive qubit design derived from the Cooper pair box,
// Koch et al., Phys. Rev. A 76, 042319.
type Transmon struct {
	dim  int
	ncut int
	ej   float64
	ec   float64
	ng   float64

	version uint64

	// Diagonalization cache, rebuilt lazily after a parameter change.
	evals  []float64
	charge *mat.COO
}

// NewTransmon returns a transmon truncated to dim eigenstates, computed on
// 2*ncut+1 charge states.
func NewTransmon(dim, ncut int, ej, ec, ng float64) (*Transmon, error) {
	if dim < 2 {
		return nil, errors.Errorf("dimension %d", dim)
	}
	if 2*ncut+1 < dim {
		return nil, errors.Errorf("charge cutoff %d too small for dimension %d", ncut, dim)
	}
	if err := validateTransmon(ej, ec); err != nil {
		return nil, err
	}
	return &Transmon{dim: dim, ncut: ncut, ej: ej, ec: ec, ng: ng}, nil
}

func validateTransmon(ej, ec float64) error {
	if ej <= 0 {
		return errors.Errorf("EJ %f not positive", ej)
	}
	if ec <= 0 {
		return errors.Errorf("EC %f not positive", ec)
	}
	return nil
}

// Dim returns the truncation dimension.
func (t *Transmon) Dim() int { return t.dim }

// diagonalize builds the charge basis Hamiltonian
// 4EC(k-ng)^2 - EJ/2 (|k><k+1| + h.c.) and keeps the dim lowest eigenpairs
// along with the Cooper pair number operator rotated into that eigenbasis.
func (t *Transmon) diagonalize() error {
	if t.evals != nil {
		return nil
	}

	n := 2*t.ncut + 1
	dense := make([][]complex128, n)
	for i := range dense {
		dense[i] = make([]complex128, n)
	}
	for i := 0; i < n; i++ {
		k := float64(i - t.ncut)
		dense[i][i] = complex(4*t.ec*(k-t.ng)*(k-t.ng), 0)
		if i+1 < n {
			dense[i][i+1] = complex(-t.ej/2, 0)
			dense[i+1][i] = complex(-t.ej/2, 0)
		}
	}

	vvs, err := mat.EigenHermitian(mat.M(dense), t.dim)
	if err != nil {
		return errors.Wrap(err, "")
	}

	evals := make([]float64, t.dim)
	for j, vv := range vvs {
		evals[j] = vv.Val - vvs[0].Val
	}

	charge := make([][]complex128, t.dim)
	for a := range charge {
		charge[a] = make([]complex128, t.dim)
		for b := range charge[a] {
			var v complex128
			for i := 0; i < n; i++ {
				k := complex(float64(i-t.ncut), 0)
				v += cmplx.Conj(vvs[a].Vec[i]) * k * vvs[b].Vec[i]
			}
			charge[a][b] = v
		}
	}

	t.evals = evals
	t.charge = mat.M(charge)
	return nil
}

// BareEigenvalues returns the dim lowest eigenvalues, with the ground state
// at zero.
func (t *Transmon) BareEigenvalues() ([]float64, error) {
	if err := t.diagonalize(); err != nil {
		return nil, err
	}
	return slices.Clone(t.evals), nil
}

// Operator returns the Cooper pair number operator "n" in the truncated
// eigenbasis.
func (t *Transmon) Operator(name string) (*mat.COO, error) {
	if name != "n" {
		return nil, errors.Errorf("transmon operator %q", name)
	}
	if err := t.diagonalize(); err != nil {
		return nil, err
	}
	return t.charge.Clone(), nil
}

// SetParameter updates "EJ", "EC" or "ng", discarding the cached spectrum.
func (t *Transmon) SetParameter(name string, value float64) error {
	ej, ec, ng := t.ej, t.ec, t.ng
	switch name {
	case "EJ":
		ej = value
	case "EC":
		ec = value
	case "ng":
		ng = value
	default:
		return errors.Errorf("transmon parameter %q", name)
	}
	if err := validateTransmon(ej, ec); err != nil {
		return err
	}
	t.ej, t.ec, t.ng = ej, ec, ng
	t.version++
	t.evals, t.charge = nil, nil
	return nil
}

// Version increases on every successful SetParameter.
func (t *Transmon) Version() uint64 { return t.version }

// Clone returns an independent copy, including the cached spectrum.
func (t *Transmon) Clone() qspace.Subsystem {
	c := *t
	if t.evals != nil {
		c.evals = slices.Clone(t.evals)
		c.charge = t.charge.Clone()
	}
	return &c
}
