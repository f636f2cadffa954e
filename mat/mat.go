// Package mat provides sparse complex matrices and Hermitian eigensolvers.
package mat

import (
	"cmp"
	"fmt"
	"math/cmplx"
	"slices"
	"strings"
)

var (
	PauliX = [][]complex128{
		{0, 1},
		{1, 0},
	}
	PauliY = [][]complex128{
		{0, -1i},
		{1i, 0},
	}
	PauliZ = [][]complex128{
		{1, 0},
		{0, -1},
	}
)

type vRowCol struct {
	v   complex128
	row int
	col int
}

// COO is a sparse matrix in coordinate format.
// Data is sorted row-major and stores no explicit zeros.
type COO struct {
	rows int
	cols int
	Data []vRowCol
}

func M(dense [][]complex128) *COO {
	m := &COO{rows: len(dense), cols: len(dense[0]), Data: make([]vRowCol, 0)}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	m := M([][]complex128{{0}})
	m.Zeros(rows, cols)
	return m
}

func COOIdentity(rows int) *COO {
	m := COOZeros(rows, rows)
	for i := 0; i < rows; i++ {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

// COODiag returns the square matrix with vs on its diagonal.
func COODiag(vs []complex128) *COO {
	m := COOZeros(len(vs), len(vs))
	for i, v := range vs {
		if v == 0 {
			continue
		}
		m.Data = append(m.Data, vRowCol{v: v, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }
func (m *COO) NNZ() int  { return len(m.Data) }

func (m *COO) Zeros(rows, cols int) {
	m.rows, m.cols = rows, cols
	m.Data = m.Data[:0]
}

func (m *COO) Scalar(v complex128) {
	m.rows, m.cols = 1, 1
	m.Data = m.Data[:0]
	m.Data = append(m.Data, vRowCol{v: v, row: 0, col: 0})
}

func (m *COO) Clone() *COO {
	c := &COO{rows: m.rows, cols: m.cols, Data: make([]vRowCol, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows {
		return false
	}
	if a.cols != b.cols {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i, av := range a.Data {
		bv := b.Data[i]
		if av != bv {
			return false
		}
	}
	return true
}

func (m *COO) At(i, j int) complex128 {
	target := vRowCol{row: i, col: j}
	n, ok := slices.BinarySearchFunc(m.Data, target, rowMajor)
	if !ok {
		return 0
	}
	return m.Data[n].v
}

func (m *COO) Slice(yBoundN, xBoundN [2]int) *COO {
	yBound, xBound := yBoundN, xBoundN
	for i := 0; i < 2; i++ {
		if yBound[i] < 0 {
			yBound[i] += m.rows
		}
		if xBound[i] < 0 {
			xBound[i] += m.cols
		}
	}

	s := &COO{rows: yBound[1] - yBound[0], cols: xBound[1] - xBound[0], Data: make([]vRowCol, 0)}
	for _, v := range m.Data {
		if v.row < yBound[0] {
			continue
		}
		if v.row >= yBound[1] {
			break
		}
		if v.col < xBound[0] || v.col >= xBound[1] {
			continue
		}
		s.Data = append(s.Data, vRowCol{v: v.v, row: v.row - yBound[0], col: v.col - xBound[0]})
	}
	return s
}

// Add computes a += c*b.
// b may be a scalar, a column vector broadcast across columns, or of equal shape.
func (a *COO) Add(c complex128, b *COO) {
	bm := make(map[[2]int]complex128, len(b.Data))
	for _, v := range b.Data {
		bm[[2]int{v.row, v.col}] = v.v
	}

	for i, av := range a.Data {
		var byx [2]int
		switch {
		case b.rows == 1 && b.cols == 1:
		case b.rows == a.rows && b.cols == 1:
			byx[0] = av.row
		case b.rows == a.rows && b.cols == a.cols:
			byx[0], byx[1] = av.row, av.col
		default:
			panic(fmt.Sprintf("wrong dimensions"))
		}
		bv := bm[byx]
		delete(bm, byx)

		a.Data[i].v = av.v + c*bv
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	for yx, bv := range bm {
		a.Data = append(a.Data, vRowCol{v: c * bv, row: yx[0], col: yx[1]})
	}
	slices.SortFunc(a.Data, rowMajor)
}

// Mul computes the elementwise product a *= b, with the same broadcast rules as Add.
func (a *COO) Mul(b *COO) {
	bm := make(map[[2]int]complex128, len(b.Data))
	for _, v := range b.Data {
		bm[[2]int{v.row, v.col}] = v.v
	}

	for i, av := range a.Data {
		var byx [2]int
		switch {
		case b.rows == 1 && b.cols == 1:
		case b.rows == a.rows && b.cols == 1:
			byx[0] = av.row
		case b.rows == a.rows && b.cols == a.cols:
			byx[0], byx[1] = av.row, av.col
		default:
			panic(fmt.Sprintf("wrong dimensions"))
		}
		bv := bm[byx]

		a.Data[i].v = av.v * bv
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
}

// MatMul returns the matrix product a*b.
func (a *COO) MatMul(b *COO) *COO {
	if a.cols != b.rows {
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}

	bRows := make([][]vRowCol, b.rows)
	for _, bv := range b.Data {
		bRows[bv.row] = append(bRows[bv.row], bv)
	}

	acc := make(map[[2]int]complex128)
	for _, av := range a.Data {
		for _, bv := range bRows[av.col] {
			acc[[2]int{av.row, bv.col}] += av.v * bv.v
		}
	}

	p := COOZeros(a.rows, b.cols)
	for yx, v := range acc {
		if v == 0 {
			continue
		}
		p.Data = append(p.Data, vRowCol{v: v, row: yx[0], col: yx[1]})
	}
	slices.SortFunc(p.Data, rowMajor)
	return p
}

// Kron computes the Kronecker product a = a⊗b in place.
func (a *COO) Kron(b *COO) {
	rows := a.rows * b.rows
	cols := a.cols * b.cols
	a.rows, a.cols = rows, cols

	prevElemNum := len(a.Data)
	for i := prevElemNum - 1; i >= 0; i-- {
		av := a.Data[i]
		a.Data[i].v = 0
		for _, bv := range b.Data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			a.Data = append(a.Data, vRowCol{v: av.v * bv.v, row: ky, col: kx})
		}
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.Data, rowMajor)
}

// Scale computes a *= c.
func (a *COO) Scale(c complex128) {
	if c == 0 {
		a.Data = a.Data[:0]
		return
	}
	for i := range a.Data {
		a.Data[i].v *= c
	}
}

// Dagger returns the conjugate transpose of m.
func (m *COO) Dagger() *COO {
	d := &COO{rows: m.cols, cols: m.rows, Data: make([]vRowCol, 0, len(m.Data))}
	for _, v := range m.Data {
		d.Data = append(d.Data, vRowCol{v: cmplx.Conj(v.v), row: v.col, col: v.row})
	}
	slices.SortFunc(d.Data, rowMajor)
	return d
}

// IsHermitian reports whether |m[i][j] - conj(m[j][i])| <= tol for all entries.
func (m *COO) IsHermitian(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	d := m.Dagger()

	i, j := 0, 0
	for i < len(m.Data) || j < len(d.Data) {
		switch {
		case i >= len(m.Data):
			if cmplx.Abs(d.Data[j].v) > tol {
				return false
			}
			j++
		case j >= len(d.Data):
			if cmplx.Abs(m.Data[i].v) > tol {
				return false
			}
			i++
		default:
			switch c := rowMajor(m.Data[i], d.Data[j]); {
			case c < 0:
				if cmplx.Abs(m.Data[i].v) > tol {
					return false
				}
				i++
			case c > 0:
				if cmplx.Abs(d.Data[j].v) > tol {
					return false
				}
				j++
			default:
				if cmplx.Abs(m.Data[i].v-d.Data[j].v) > tol {
					return false
				}
				i++
				j++
			}
		}
	}
	return true
}

func (m *COO) Dense() [][]complex128 {
	dense := make([][]complex128, m.rows)
	for i := range dense {
		dense[i] = make([]complex128, m.cols)
	}

	for _, v := range m.Data {
		dense[v.row][v.col] = v.v
	}

	return dense
}

func (m *COO) String() string {
	mm := make(map[[2]int]complex128, len(m.Data))
	for _, v := range m.Data {
		mm[[2]int{v.row, v.col}] = v.v
	}

	lines := []string{}
	for i := 0; i < m.rows; i++ {
		cs := []string{}
		for j := 0; j < m.cols; j++ {
			v := mm[[2]int{i, j}]
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				cs = append(cs, format(real(v))+"+"+format(imag(v))+"i")
			}
		}
		l := strings.Join(cs, "\t")
		lines = append(lines, l)
	}

	return strings.Join(lines, "\n")
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%v", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}
