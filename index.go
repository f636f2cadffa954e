package qspace

// BareToFlat maps a tuple of per-subsystem level indices to the flat index of
// the bare product state, with the last subsystem varying fastest.
func BareToFlat(dims, tuple []int) (int, error) {
	if len(tuple) != len(dims) {
		return 0, constructionErrorf("tuple length %d, subsystem count %d", len(tuple), len(dims))
	}
	f := 0
	for i, n := range tuple {
		if n < 0 || n >= dims[i] {
			return 0, constructionErrorf("level %d out of range [0, %d) at subsystem %d", n, dims[i], i)
		}
		f = f*dims[i] + n
	}
	return f, nil
}

// FlatToBare is the inverse of BareToFlat.
func FlatToBare(dims []int, f int) ([]int, error) {
	dim := 1
	for _, d := range dims {
		dim *= d
	}
	if f < 0 || f >= dim {
		return nil, constructionErrorf("flat index %d out of range [0, %d)", f, dim)
	}

	tuple := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		tuple[i] = f % dims[i]
		f /= dims[i]
	}
	return tuple, nil
}

// indices iterates over all bare product states in flat index order.
// The yielded tuple is a reused buffer.
func indices(dims []int) func(yield func(int, []int) bool) {
	return func(yield func(int, []int) bool) {
		dim := 1
		for _, d := range dims {
			dim *= d
		}

		tuple := make([]int, len(dims))
		for f := 0; f < dim; f++ {
			if !yield(f, tuple) {
				return
			}
			for i := len(dims) - 1; i >= 0; i-- {
				tuple[i]++
				if tuple[i] < dims[i] {
					break
				}
				tuple[i] = 0
			}
		}
	}
}
