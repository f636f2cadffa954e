package qspace

import (
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/ksaito/qspace/mat"
)

// HermitianTol is the largest deviation from Hermiticity a composite
// Hamiltonian may carry before its construction fails.
const HermitianTol = 1e-10

// DefaultDenseLimit is the composite dimension above which Eigensystem
// switches from the dense solver to Arnoldi iteration when only part of the
// spectrum is requested.
const DefaultDenseLimit = 512

// Spectrum holds the lowest part of a dressed spectrum: eigenvalues in
// ascending order and the matching normalized eigenvectors in the bare
// product basis.
type Spectrum struct {
	Evals []float64
	Evecs [][]complex128
}

// HilbertSpace is the tensor product of an ordered list of subsystems,
// together with the interaction terms coupling them.
//
// A HilbertSpace is not safe for concurrent use. Parameter sweeps give each
// worker its own space obtained from Clone.
type HilbertSpace struct {
	subs  []Subsystem
	dims  []int
	dim   int
	terms []*Term

	log        zerolog.Logger
	denseLimit int

	// termsRev increases on every interaction change, invalidating lookups.
	termsRev uint64

	bare         *mat.COO
	bareVersions []uint64

	lookup         *lookupTable
	lookupVersions []uint64
	lookupTermsRev uint64
}

// New returns the composite space of the given subsystems, in order.
func New(subs ...Subsystem) (*HilbertSpace, error) {
	if len(subs) == 0 {
		return nil, constructionErrorf("no subsystems")
	}

	h := &HilbertSpace{subs: subs, log: zerolog.Nop(), denseLimit: DefaultDenseLimit}
	h.dims = make([]int, len(subs))
	h.dim = 1
	for i, s := range subs {
		d := s.Dim()
		if d < 1 {
			return nil, constructionErrorf("subsystem %d dimension %d", i, d)
		}
		if h.dim > math.MaxInt/d {
			return nil, constructionErrorf("composite dimension overflow at subsystem %d", i)
		}
		h.dims[i] = d
		h.dim *= d
	}
	return h, nil
}

// SetLogger directs diagnostics such as clamping and lookup collisions to l.
func (h *HilbertSpace) SetLogger(l zerolog.Logger) { h.log = l }

// SetDenseLimit overrides DefaultDenseLimit for this space.
func (h *HilbertSpace) SetDenseLimit(n int) { h.denseLimit = n }

// Dim returns the composite dimension, the product of all subsystem dimensions.
func (h *HilbertSpace) Dim() int { return h.dim }

// Dims returns the subsystem dimensions in subsystem order.
func (h *HilbertSpace) Dims() []int { return slices.Clone(h.dims) }

// Subsystem returns the i-th subsystem.
func (h *HilbertSpace) Subsystem(i int) Subsystem { return h.subs[i] }

// NumSubsystems returns the number of subsystems.
func (h *HilbertSpace) NumSubsystems() int { return len(h.subs) }

// AddInteraction appends an interaction term to the Hamiltonian.
func (h *HilbertSpace) AddInteraction(t *Term) {
	h.terms = append(h.terms, t)
	h.termsRev++
}

// RemoveInteraction removes the i-th interaction term, in insertion order.
func (h *HilbertSpace) RemoveInteraction(i int) error {
	if i < 0 || i >= len(h.terms) {
		return constructionErrorf("interaction %d out of range [0, %d)", i, len(h.terms))
	}
	h.terms = slices.Delete(h.terms, i, i+1)
	h.termsRev++
	return nil
}

// NumInteractions returns the number of interaction terms.
func (h *HilbertSpace) NumInteractions() int { return len(h.terms) }

// SetParameter updates a physical parameter of the i-th subsystem.
func (h *HilbertSpace) SetParameter(i int, name string, value float64) error {
	if i < 0 || i >= len(h.subs) {
		return constructionErrorf("subsystem %d out of range [0, %d)", i, len(h.subs))
	}
	if err := h.subs[i].SetParameter(name, value); err != nil {
		return wrapConstruction(err, "subsystem %d parameter %q", i, name)
	}
	return nil
}

func (h *HilbertSpace) versions() []uint64 {
	vs := make([]uint64, len(h.subs))
	for i, s := range h.subs {
		vs[i] = s.Version()
	}
	return vs
}

// BareHamiltonian returns the diagonal Hamiltonian of the non-interacting
// composite system: the bare product state at flat index f has energy equal
// to the sum of its subsystem eigenvalues. The result is cached until a
// subsystem parameter changes. Callers must not modify it.
func (h *HilbertSpace) BareHamiltonian() (*mat.COO, error) {
	versions := h.versions()
	if h.bare != nil && slices.Equal(h.bareVersions, versions) {
		return h.bare, nil
	}

	evs := make([][]float64, len(h.subs))
	for i, s := range h.subs {
		ev, err := s.BareEigenvalues()
		if err != nil {
			return nil, wrapConstruction(err, "subsystem %d bare eigenvalues", i)
		}
		if len(ev) != h.dims[i] {
			return nil, constructionErrorf("subsystem %d: %d eigenvalues, dimension %d", i, len(ev), h.dims[i])
		}
		evs[i] = ev
	}

	diag := make([]complex128, h.dim)
	for f, tuple := range indices(h.dims) {
		var e float64
		for i, n := range tuple {
			e += evs[i][n]
		}
		diag[f] = complex(e, 0)
	}

	h.bare = mat.COODiag(diag)
	h.bareVersions = versions
	return h.bare, nil
}

// Hamiltonian returns the full dressed Hamiltonian: the bare Hamiltonian plus
// every interaction term. With no interactions it equals BareHamiltonian
// exactly. A result that is not Hermitian within HermitianTol is an error.
func (h *HilbertSpace) Hamiltonian() (*mat.COO, error) {
	bare, err := h.BareHamiltonian()
	if err != nil {
		return nil, err
	}

	ham := bare.Clone()
	for i, t := range h.terms {
		m, err := t.evaluate(h.subs, h.dims)
		if err != nil {
			return nil, wrapConstruction(err, "interaction %d", i)
		}
		if m.Rows() != h.dim || m.Cols() != h.dim {
			return nil, constructionErrorf("interaction %d: %dx%d, space dimension %d", i, m.Rows(), m.Cols(), h.dim)
		}
		ham.Add(1, m)
	}

	if !ham.IsHermitian(HermitianTol) {
		return nil, constructionErrorf("hamiltonian not hermitian within %g", HermitianTol)
	}
	return ham, nil
}

// Eigensystem diagonalizes the full Hamiltonian and returns the evalsCount
// lowest eigenpairs. Requests beyond the composite dimension are clamped to
// it. Diagonalization failure is a ConvergenceError.
func (h *HilbertSpace) Eigensystem(evalsCount int) (*Spectrum, error) {
	if evalsCount < 1 {
		return nil, constructionErrorf("evals count %d", evalsCount)
	}
	if evalsCount > h.dim {
		h.log.Warn().Int("evals_count", evalsCount).Int("dim", h.dim).
			Msg("clamping eigenvalue count to the space dimension")
		evalsCount = h.dim
	}

	ham, err := h.Hamiltonian()
	if err != nil {
		return nil, err
	}

	var vvs []mat.ValVec
	switch {
	case h.dim > h.denseLimit && evalsCount < h.dim:
		vvs, err = mat.EigenArnoldi(ham, evalsCount)
	default:
		vvs, err = mat.EigenHermitian(ham, evalsCount)
	}
	if err != nil {
		return nil, &ConvergenceError{Dim: h.dim, EvalsCount: evalsCount, Err: err}
	}

	spectrum := &Spectrum{
		Evals: make([]float64, len(vvs)),
		Evecs: make([][]complex128, len(vvs)),
	}
	for i, vv := range vvs {
		spectrum.Evals[i] = vv.Val
		spectrum.Evecs[i] = vv.Vec
	}
	return spectrum, nil
}

// Clone returns an independent copy of the space: subsystems are deep copied
// along with their cached bare spectra, interaction terms are shared since
// they are immutable. A generated lookup carries over and stays valid until
// a parameter or interaction changes on either copy.
func (h *HilbertSpace) Clone() *HilbertSpace {
	c := &HilbertSpace{
		dims:           slices.Clone(h.dims),
		dim:            h.dim,
		terms:          slices.Clone(h.terms),
		log:            h.log,
		denseLimit:     h.denseLimit,
		termsRev:       h.termsRev,
		bareVersions:   slices.Clone(h.bareVersions),
		lookup:         h.lookup,
		lookupVersions: slices.Clone(h.lookupVersions),
		lookupTermsRev: h.lookupTermsRev,
	}
	c.subs = make([]Subsystem, len(h.subs))
	for i, s := range h.subs {
		c.subs[i] = s.Clone()
	}
	if h.bare != nil {
		c.bare = h.bare.Clone()
	}
	return c
}
