package qspace

import (
	"github.com/ksaito/qspace/mat"
)

// Embed builds the composite operator that applies ops[i] to subsystem i and
// the identity to every other subsystem. All slots are combined in a single
// Kronecker pass, never as a product of full-size embeddings.
func Embed(dims []int, ops map[int]*mat.COO) (*mat.COO, error) {
	for slot, op := range ops {
		if slot < 0 || slot >= len(dims) {
			return nil, constructionErrorf("subsystem %d out of range [0, %d)", slot, len(dims))
		}
		if op.Rows() != op.Cols() {
			return nil, constructionErrorf("operator at subsystem %d not square: %dx%d", slot, op.Rows(), op.Cols())
		}
		if op.Rows() != dims[slot] {
			return nil, constructionErrorf("operator dimension %d, subsystem %d dimension %d", op.Rows(), slot, dims[slot])
		}
	}

	system := mat.M([][]complex128{{1}})
	for i, d := range dims {
		op, ok := ops[i]
		switch {
		case ok:
			system.Kron(op)
		default:
			system.Kron(mat.COOIdentity(d))
		}
	}
	return system, nil
}
