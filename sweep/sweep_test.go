package sweep

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/qubit"
)

// testSpace builds a two level qubit coupled to a resonator through
// g*(sp*a + sm*adag).
func testSpace(t *testing.T) *qspace.HilbertSpace {
	t.Helper()

	q, err := qubit.NewTwoLevel(5.3)
	require.NoError(t, err)
	osc, err := qubit.NewOscillator(6, 5, 0)
	require.NoError(t, err)
	space, err := qspace.New(q, osc)
	require.NoError(t, err)

	term, err := qspace.NewTerm(
		0.05,
		[]qspace.TermOp{{Subsystem: 0, Name: "sp"}, {Subsystem: 1, Name: "a"}},
		qspace.NewTermOptions().HermitianConjugate(true))
	require.NoError(t, err)
	space.AddInteraction(term)
	return space
}

func TestRun(t *testing.T) {
	t.Parallel()
	space := testSpace(t)
	values := []float64{4.8, 5, 5.2}

	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     values,
		Affected:   []int{1},
		EvalsCount: 5,
		Workers:    2,
	})
	require.NoError(t, err)

	s := res.Summary()
	assert.Equal(t, len(values), s.Done)
	assert.Zero(t, s.Failed)
	assert.Zero(t, s.Pending)
	assert.Empty(t, s.FailedPoints)
	require.Equal(t, len(values), res.NumPoints())

	for i, v := range values {
		p, err := res.Point(i)
		require.NoError(t, err)
		assert.Equal(t, v, p.Value)
		assert.Equal(t, Done, p.Status)

		// The resonator was swept, the qubit was not.
		bareQ, err := res.BareEigenvalues(0, i)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 5.3}, bareQ)
		bareOsc, err := res.BareEigenvalues(1, i)
		require.NoError(t, err)
		require.Len(t, bareOsc, 6)
		assert.InDelta(t, v, bareOsc[1], 1e-12)

		dressed, err := res.DressedEigenvalues(i)
		require.NoError(t, err)
		require.Len(t, dressed, 5)
		assert.True(t, slices.IsSorted(dressed))

		_, err = res.DressedEigenvectors(i)
		assert.Error(t, err, "vectors were not kept")
	}

	// Points work on clones, the original space is untouched.
	assert.Zero(t, space.Subsystem(1).Version())
}

func TestRunFailedPoint(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	// A negative frequency is rejected by the oscillator, failing point 1
	// without stopping the sweep.
	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     []float64{4.8, -1, 5.2},
		Affected:   []int{1},
		EvalsCount: 4,
		Workers:    2,
	})
	require.NoError(t, err)

	s := res.Summary()
	assert.Equal(t, 2, s.Done)
	assert.Equal(t, 1, s.Failed)
	assert.Zero(t, s.Pending)
	assert.Equal(t, []int{1}, s.FailedPoints)

	p, err := res.Point(1)
	require.NoError(t, err)
	assert.Equal(t, Failed, p.Status)
	assert.Error(t, p.Err)
	_, err = res.DressedEigenvalues(1)
	assert.Error(t, err)

	for _, i := range []int{0, 2} {
		dressed, err := res.DressedEigenvalues(i)
		require.NoError(t, err)
		assert.Len(t, dressed, 4)
	}
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	values := make([]float64, 50)
	for i := range values {
		values[i] = 4 + 0.01*float64(i)
	}

	// The first computed point cancels the sweep. With a single worker every
	// later point is abandoned before starting.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	update := func(v float64, subs []qspace.Subsystem) error {
		once.Do(cancel)
		return subs[0].SetParameter("freq", v)
	}

	res, err := Run(ctx, Config{
		Space:      space,
		Parameter:  "freq",
		Values:     values,
		Affected:   []int{1},
		Update:     update,
		EvalsCount: 3,
		Workers:    1,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	s := res.Summary()
	assert.Equal(t, 1, s.Done)
	assert.Zero(t, s.Failed)
	assert.Equal(t, len(values)-1, s.Pending)

	// The finished record is intact.
	dressed, err := res.DressedEigenvalues(0)
	require.NoError(t, err)
	assert.Len(t, dressed, 3)
	_, err = res.DressedEigenvalues(1)
	assert.Error(t, err)
}

func TestRunKeepVecs(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     []float64{5},
		Affected:   []int{1},
		EvalsCount: 4,
		Workers:    1,
		KeepVecs:   true,
	})
	require.NoError(t, err)

	vecs, err := res.DressedEigenvectors(0)
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, vec := range vecs {
		require.Len(t, vec, space.Dim())
		var norm float64
		for _, v := range vec {
			norm += real(v)*real(v) + imag(v)*imag(v)
		}
		assert.InDelta(t, 1, norm, 1e-8)
	}
}

func TestRunUpdateFunc(t *testing.T) {
	t.Parallel()
	space := testSpace(t)
	values := []float64{4, 4.5}

	// A custom update retunes both subsystems from a single swept value.
	update := func(v float64, subs []qspace.Subsystem) error {
		if err := subs[0].SetParameter("e01", v); err != nil {
			return err
		}
		return subs[1].SetParameter("freq", v+0.7)
	}

	res, err := Run(context.Background(), Config{
		Space:      space,
		Values:     values,
		Affected:   []int{0, 1},
		Update:     update,
		EvalsCount: 3,
		Workers:    2,
	})
	require.NoError(t, err)
	require.Equal(t, len(values), res.Summary().Done)

	for i, v := range values {
		bareQ, err := res.BareEigenvalues(0, i)
		require.NoError(t, err)
		assert.InDelta(t, v, bareQ[1], 1e-12)
		bareOsc, err := res.BareEigenvalues(1, i)
		require.NoError(t, err)
		assert.InDelta(t, v+0.7, bareOsc[1], 1e-12)
	}
}

func TestRunEvalsClamp(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     []float64{5.1},
		Affected:   []int{1},
		EvalsCount: 100,
		Workers:    1,
	})
	require.NoError(t, err)

	dressed, err := res.DressedEigenvalues(0)
	require.NoError(t, err)
	assert.Len(t, dressed, space.Dim())
}

func TestRunValidation(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "nil space",
			cfg:  Config{Parameter: "freq", Values: []float64{1}, Affected: []int{0}, EvalsCount: 1},
		},
		{
			name: "no values",
			cfg:  Config{Space: space, Parameter: "freq", Affected: []int{0}, EvalsCount: 1},
		},
		{
			name: "zero evals",
			cfg:  Config{Space: space, Parameter: "freq", Values: []float64{1}, Affected: []int{0}},
		},
		{
			name: "no affected subsystems",
			cfg:  Config{Space: space, Parameter: "freq", Values: []float64{1}, EvalsCount: 1},
		},
		{
			name: "affected out of range",
			cfg:  Config{Space: space, Parameter: "freq", Values: []float64{1}, Affected: []int{2}, EvalsCount: 1},
		},
		{
			name: "no parameter and no update",
			cfg:  Config{Space: space, Values: []float64{1}, Affected: []int{0}, EvalsCount: 1},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			res, err := Run(context.Background(), test.cfg)
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestResultOutOfRange(t *testing.T) {
	t.Parallel()
	space := testSpace(t)

	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     []float64{5},
		Affected:   []int{1},
		EvalsCount: 2,
		Workers:    1,
	})
	require.NoError(t, err)

	_, err = res.Point(-1)
	assert.Error(t, err)
	_, err = res.Point(1)
	assert.Error(t, err)
	_, err = res.DressedEigenvalues(7)
	assert.Error(t, err)
	_, err = res.BareEigenvalues(5, 0)
	assert.Error(t, err)
}

func TestSkipThrottler(t *testing.T) {
	t.Parallel()

	tt := newSkipThrottler(5 * time.Millisecond)
	assert.True(t, tt.Ok())
	assert.False(t, tt.Ok())
	time.Sleep(6 * time.Millisecond)
	assert.True(t, tt.Ok())
}
