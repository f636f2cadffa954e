package sweep

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	done := Point{
		Value:   5.1,
		Status:  Done,
		Bare:    [][]float64{{0, 5.3}, {0, 5.1, 10.2}},
		Dressed: []float64{0, 5.0973, 5.3027},
		Vecs:    [][]complex128{{1, 0, 0}, {0, 0.6, complex(0, 0.8)}},
	}
	require.NoError(t, store.SavePoint(ctx, "run-a", 0, done))

	failed := Point{
		Value:  -1,
		Status: Failed,
		Err:    errors.New("update: frequency -1 not positive"),
	}
	require.NoError(t, store.SavePoint(ctx, "run-a", 1, failed))

	got, err := store.LoadPoint(ctx, "run-a", 0)
	require.NoError(t, err)
	assert.Equal(t, done.Value, got.Value)
	assert.Equal(t, done.Status, got.Status)
	assert.NoError(t, got.Err)
	assert.Equal(t, done.Bare, got.Bare)
	assert.Equal(t, done.Dressed, got.Dressed)
	assert.Equal(t, done.Vecs, got.Vecs)

	got, err = store.LoadPoint(ctx, "run-a", 1)
	require.NoError(t, err)
	assert.Equal(t, Failed, got.Status)
	require.Error(t, got.Err)
	assert.Equal(t, failed.Err.Error(), got.Err.Error())
	assert.Nil(t, got.Dressed)
	assert.Nil(t, got.Vecs)

	_, err = store.LoadPoint(ctx, "run-a", 2)
	assert.ErrorIs(t, err, ErrPointNotFound)
	_, err = store.LoadPoint(ctx, "run-b", 0)
	assert.ErrorIs(t, err, ErrPointNotFound)
}

func TestStoreOverwrite(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SavePoint(ctx, "run-a", 0, Point{Value: 1, Status: Failed, Err: errors.New("transient")}))
	require.NoError(t, store.SavePoint(ctx, "run-a", 0, Point{Value: 1, Status: Done, Dressed: []float64{0, 1}}))

	got, err := store.LoadPoint(ctx, "run-a", 0)
	require.NoError(t, err)
	assert.Equal(t, Done, got.Status)
	assert.NoError(t, got.Err)
	assert.Equal(t, []float64{0, 1}, got.Dressed)
}

func TestStoreRuns(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, store.SavePoint(ctx, "run-b", 0, Point{Status: Pending}))
	require.NoError(t, store.SavePoint(ctx, "run-a", 0, Point{Status: Pending}))
	require.NoError(t, store.SavePoint(ctx, "run-a", 1, Point{Status: Pending}))

	runs, err = store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, runs)
}

// TestStoreReopen checks that records survive closing and reopening the
// database file.
func TestStoreReopen(t *testing.T) {
	t.Parallel()

	fpath := filepath.Join(t.TempDir(), "sweep.db")
	ctx := context.Background()

	store, err := OpenStore(fpath)
	require.NoError(t, err)
	require.NoError(t, store.SavePoint(ctx, "run-a", 3, Point{Value: 2.5, Status: Done, Dressed: []float64{0.5}}))
	require.NoError(t, store.Close())

	store, err = OpenStore(fpath)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.LoadPoint(ctx, "run-a", 3)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Value)
	assert.Equal(t, []float64{0.5}, got.Dressed)
}

// TestRunArchive sweeps with an archive attached and checks that every
// record can be read back.
func TestRunArchive(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer store.Close()

	space := testSpace(t)
	res, err := Run(context.Background(), Config{
		Space:      space,
		Parameter:  "freq",
		Values:     []float64{4.9, -1, 5.1},
		Affected:   []int{1},
		EvalsCount: 3,
		Workers:    2,
		KeepVecs:   true,
		Archive:    store,
	})
	require.NoError(t, err)

	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{res.RunID}, runs)

	for i := 0; i < res.NumPoints(); i++ {
		want, err := res.Point(i)
		require.NoError(t, err)
		got, err := store.LoadPoint(context.Background(), res.RunID, i)
		require.NoError(t, err)

		assert.Equal(t, want.Value, got.Value)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Bare, got.Bare)
		assert.Equal(t, want.Dressed, got.Dressed)
		assert.Equal(t, want.Vecs, got.Vecs)
		if want.Err != nil {
			require.Error(t, got.Err)
			assert.Equal(t, want.Err.Error(), got.Err.Error())
		} else {
			assert.NoError(t, got.Err)
		}
	}
}
