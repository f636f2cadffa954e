package qspace

import (
	"slices"

	"github.com/pkg/errors"
)

// Collision records a bare product state that is the dominant component of
// more than one dressed state, which happens near degeneracies. The smallest
// dressed index keeps the assignment; the rest stay reachable through
// BareIndex only.
type Collision struct {
	Bare    int   // flat bare index
	Dressed []int // dressed indices sharing the bare state, ascending
}

type lookupTable struct {
	spectrum      *Spectrum
	dressedToBare []int
	bareToDressed []int // -1 when unassigned
	collisions    []Collision
}

func newLookupTable(spectrum *Spectrum, dim int) *lookupTable {
	lt := &lookupTable{
		spectrum:      spectrum,
		dressedToBare: make([]int, len(spectrum.Evecs)),
		bareToDressed: make([]int, dim),
	}
	for f := range lt.bareToDressed {
		lt.bareToDressed[f] = -1
	}

	contested := make(map[int][]int)
	for j, vec := range spectrum.Evecs {
		// The strict comparison makes the smallest flat index win exact ties.
		best, bestP := 0, -1.0
		for f, amp := range vec {
			p := real(amp)*real(amp) + imag(amp)*imag(amp)
			if p > bestP {
				best, bestP = f, p
			}
		}
		lt.dressedToBare[j] = best

		switch prev := lt.bareToDressed[best]; {
		case prev < 0:
			lt.bareToDressed[best] = j
		default:
			if len(contested[best]) == 0 {
				contested[best] = append(contested[best], prev)
			}
			contested[best] = append(contested[best], j)
		}
	}

	bares := make([]int, 0, len(contested))
	for f := range contested {
		bares = append(bares, f)
	}
	slices.Sort(bares)
	for _, f := range bares {
		lt.collisions = append(lt.collisions, Collision{Bare: f, Dressed: contested[f]})
	}

	return lt
}

// GenerateLookup diagonalizes the Hamiltonian and assigns each of the
// evalsCount lowest dressed states its dominant bare product state, the one
// with the largest overlap probability. The inverse assignment keeps the
// smallest dressed index, and every contested bare state is reported as a
// Collision rather than an error.
//
// The table is invalidated by any subsequent parameter or interaction change.
func (h *HilbertSpace) GenerateLookup(evalsCount int) error {
	spectrum, err := h.Eigensystem(evalsCount)
	if err != nil {
		return err
	}

	lt := newLookupTable(spectrum, h.dim)
	for _, c := range lt.collisions {
		h.log.Warn().Int("bare", c.Bare).Ints("dressed", c.Dressed).
			Msg("bare state contested by multiple dressed states")
	}

	h.lookup = lt
	h.lookupVersions = h.versions()
	h.lookupTermsRev = h.termsRev
	return nil
}

func (h *HilbertSpace) lookupValid() bool {
	return h.lookup != nil &&
		h.lookupTermsRev == h.termsRev &&
		slices.Equal(h.lookupVersions, h.versions())
}

// BareIndex returns the level tuple of the bare product state that dominates
// the j-th dressed state.
func (h *HilbertSpace) BareIndex(dressed int) ([]int, error) {
	if !h.lookupValid() {
		return nil, errors.WithStack(ErrLookupNotGenerated)
	}
	if dressed < 0 || dressed >= len(h.lookup.dressedToBare) {
		return nil, errors.Wrapf(ErrDressedIndexOutOfRange, "%d of %d", dressed, len(h.lookup.dressedToBare))
	}
	return FlatToBare(h.dims, h.lookup.dressedToBare[dressed])
}

// DressedIndex returns the dressed state whose dominant bare component is the
// given level tuple.
func (h *HilbertSpace) DressedIndex(bare []int) (int, error) {
	if !h.lookupValid() {
		return 0, errors.WithStack(ErrLookupNotGenerated)
	}
	f, err := BareToFlat(h.dims, bare)
	if err != nil {
		return 0, err
	}
	j := h.lookup.bareToDressed[f]
	if j < 0 {
		return 0, errors.Wrapf(ErrUnassignedBareState, "%v", bare)
	}
	return j, nil
}

// EnergyByDressedIndex returns the eigenvalue of the j-th dressed state from
// the generated lookup.
func (h *HilbertSpace) EnergyByDressedIndex(j int) (float64, error) {
	if !h.lookupValid() {
		return 0, errors.WithStack(ErrLookupNotGenerated)
	}
	if j < 0 || j >= len(h.lookup.spectrum.Evals) {
		return 0, errors.Wrapf(ErrDressedIndexOutOfRange, "%d of %d", j, len(h.lookup.spectrum.Evals))
	}
	return h.lookup.spectrum.Evals[j], nil
}

// Collisions returns the contested bare states of the current lookup, or nil
// when no valid lookup exists.
func (h *HilbertSpace) Collisions() []Collision {
	if !h.lookupValid() {
		return nil
	}
	return slices.Clone(h.lookup.collisions)
}
