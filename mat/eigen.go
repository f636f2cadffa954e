package mat

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// orthTol separates genuinely new eigenvector directions from numerical copies
// of already accepted ones.
const orthTol = 1e-6

// ValVec is an eigenpair of a Hermitian matrix.
type ValVec struct {
	Val float64
	Vec []complex128
}

// EigenHermitian computes the k lowest eigenpairs of the Hermitian matrix m.
// Eigenvalues are returned in ascending order with orthonormal eigenvectors.
// k larger than the dimension of m is treated as the dimension itself.
//
// Since H = A+iB is Hermitian exactly when the real matrix [[A, -B], [B, A]]
// is symmetric with the same spectrum doubled, complex matrices are solved
// through their real symmetric embedding.
func EigenHermitian(m *COO, k int) ([]ValVec, error) {
	if m.rows != m.cols {
		return nil, errors.Errorf("not square %dx%d", m.rows, m.cols)
	}
	if m.rows == 0 {
		return nil, errors.Errorf("empty matrix")
	}
	if k < 1 {
		return nil, errors.Errorf("k %d", k)
	}
	if k > m.rows {
		k = m.rows
	}

	if isReal(m) {
		return eigenSym(m, k)
	}
	return eigenEmbed(m, k)
}

func isReal(m *COO) bool {
	for _, v := range m.Data {
		if imag(v.v) != 0 {
			return false
		}
	}
	return true
}

func eigenSym(m *COO, k int) ([]ValVec, error) {
	n := m.rows
	sym := mat.NewSymDense(n, nil)
	for _, v := range m.Data {
		if v.row > v.col {
			continue
		}
		sym.SetSym(v.row, v.col, real(v.v))
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eigendecomposition failed %dx%d", n, n)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	vvs := make([]ValVec, 0, k)
	for i := 0; i < k; i++ {
		vec := make([]complex128, n)
		for j := 0; j < n; j++ {
			vec[j] = complex(vecs.At(j, i), 0)
		}
		vvs = append(vvs, ValVec{Val: vals[i], Vec: vec})
	}
	return vvs, nil
}

func eigenEmbed(m *COO, k int) ([]ValVec, error) {
	n := m.rows
	sym := mat.NewSymDense(2*n, nil)
	for _, v := range m.Data {
		a, b := real(v.v), imag(v.v)
		sym.SetSym(v.row, v.col, a)
		sym.SetSym(v.row+n, v.col+n, a)
		if b != 0 {
			sym.SetSym(v.row+n, v.col, b)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eigendecomposition failed %dx%d", 2*n, 2*n)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// Every eigenpair of m appears twice in the embedding, as (x; y) and (-y; x)
	// for the complex eigenvector x+iy. Walking columns in ascending eigenvalue
	// order and keeping only directions independent of those already accepted
	// recovers each pair once, with degenerate subspaces orthonormalized.
	accepted := make([]ValVec, 0, n)
	cand := make([]complex128, n)
	for c := 0; c < 2*n && len(accepted) < n; c++ {
		for j := 0; j < n; j++ {
			cand[j] = complex(vecs.At(j, c), vecs.At(j+n, c))
		}
		vec := orthonormalize(cand, accepted)
		if vec == nil {
			continue
		}
		accepted = append(accepted, ValVec{Val: vals[c], Vec: vec})
	}
	if len(accepted) != n {
		return nil, errors.Errorf("eigenvector recovery %d %d", len(accepted), n)
	}

	return accepted[:k], nil
}

// orthonormalize projects z off the span of basis and normalizes the remainder.
// It returns nil when the remainder is negligible.
func orthonormalize(z []complex128, basis []ValVec) []complex128 {
	w := make([]complex128, len(z))
	copy(w, z)
	// Project twice to keep orthogonality in nearly dependent cases.
	for pass := 0; pass < 2; pass++ {
		for _, b := range basis {
			var ip complex128
			for i, bv := range b.Vec {
				ip += cmplx.Conj(bv) * w[i]
			}
			for i, bv := range b.Vec {
				w[i] -= ip * bv
			}
		}
	}

	if normalize(w) <= orthTol {
		return nil
	}
	return w
}

// normalize scales v to unit length and returns the original norm.
func normalize(v []complex128) float64 {
	var norm float64
	for _, c := range v {
		norm += real(c)*real(c) + imag(c)*imag(c)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return 0
	}
	for i := range v {
		v[i] /= complex(norm, 0)
	}
	return norm
}

// Theorem A3, Bounds for the eigenvalues of a matrix, Kenneth R. Garren.
func gerschgorin(m *COO) (float64, float64) {
	if len(m.Data) == 0 {
		return 0, 0
	}

	type circle struct {
		center complex128
		radius float64
	}
	circles := make([]circle, 0, m.rows)

	var curRow int = m.Data[0].row
	var curCenter complex128
	var curRadius float64
	for _, v := range m.Data {
		if v.row != curRow {
			c := circle{center: curCenter, radius: curRadius}
			circles = append(circles, c)

			curRow = v.row
			curCenter = 0
			curRadius = 0
		}

		if v.row == v.col {
			curCenter = v.v
		} else {
			curRadius += cmplx.Abs(v.v)
		}
	}
	// Last current row.
	c := circle{center: curCenter, radius: curRadius}
	circles = append(circles, c)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range circles {
		lo = min(lo, real(c.center)-c.radius)
		hi = max(hi, real(c.center)+c.radius)
	}
	// Rows without entries contribute a circle centered at zero.
	if len(circles) < m.rows {
		lo = min(lo, 0)
		hi = max(hi, 0)
	}
	return lo, hi
}
