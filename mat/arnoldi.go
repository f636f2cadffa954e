package mat

import (
	"cmp"
	"slices"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// EigenArnoldi computes the k lowest eigenpairs of the Hermitian matrix m by
// Arnoldi iteration, trading the dense solver's float64 precision for
// complex64 arithmetic. k must be smaller than the dimension of m.
// See The Principle of Minimized Iterations in the Solution of the Matrix
// Eigenvalue Problem, W.E. Arnoldi.
func EigenArnoldi(m *COO, k int) ([]ValVec, error) {
	if m.rows != m.cols {
		return nil, errors.Errorf("not square %dx%d", m.rows, m.cols)
	}
	n := m.rows
	if k < 1 || k >= n {
		return nil, errors.Errorf("k %d n %d", k, n)
	}

	// Shift by the upper Gerschgorin bound so that the lowest eigenvalues
	// become the dominant ones the iteration converges to.
	_, hi := gerschgorin(m)
	h := tensor.Zeros(n, n)
	for _, v := range m.Data {
		h.SetAt([]int{v.row, v.col}, complex64(v.v))
	}
	shift := complex(float32(hi), 0)
	for i := 0; i < n; i++ {
		h.SetAt([]int{i, i}, h.At(i, i)-shift)
	}

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var abufs [7]*tensor.Dense
	for i := range abufs {
		abufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, h, k, abufs); err != nil {
		return nil, errors.Wrap(err, "")
	}

	vvs := make([]ValVec, 0, k)
	for i := 0; i < k; i++ {
		vec := eigvec(eigvecs, n, i)
		normalize(vec)
		val := float64(real(eigvals.At(i))) + hi
		vvs = append(vvs, ValVec{Val: val, Vec: vec})
	}
	slices.SortFunc(vvs, func(a, b ValVec) int { return cmp.Compare(a.Val, b.Val) })
	return vvs, nil
}

// eigvec extracts the i-th eigenvector, regardless of whether vectors are laid
// out as columns or rows of t. The two cases are unambiguous since k < n.
func eigvec(t *tensor.Dense, n, i int) []complex128 {
	shape := t.Shape()
	vec := make([]complex128, n)
	switch {
	case len(shape) == 1:
		for j := 0; j < n; j++ {
			vec[j] = complex128(t.At(j))
		}
	case shape[0] == n:
		for j := 0; j < n; j++ {
			vec[j] = complex128(t.At(j, i))
		}
	default:
		for j := 0; j < n; j++ {
			vec[j] = complex128(t.At(i, j))
		}
	}
	return vec
}
