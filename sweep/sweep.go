// Package sweep diagonalizes a composite Hilbert space across a family of
// parameter points.
//
// Each point works on a private clone of the space, so points never observe
// each other's parameter updates and may run on parallel workers. A point
// that fails, whether from an unphysical parameter value or an eigensolver
// breakdown, is recorded as Failed and the sweep moves on to the next point.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ksaito/qspace"
)

const progressEvery = 100 * time.Millisecond

// Status is the lifecycle state of a sweep point.
type Status int

const (
	// Pending points have not started computing.
	// Points abandoned by cancellation stay Pending.
	Pending Status = iota
	// Computing points are being diagonalized by a worker.
	Computing
	// Done points carry a full record of spectra.
	Done
	// Failed points carry the error that stopped them.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Computing:
		return "computing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// UpdateFunc applies one swept value to the subsystems of a point's private
// space clone. subs holds only the affected subsystems, in the order listed
// in Config.Affected. Returning an error marks the point Failed without
// stopping the sweep.
type UpdateFunc func(value float64, subs []qspace.Subsystem) error

// Config describes a sweep.
type Config struct {
	// Space is the composite space to sweep. It is cloned per point and
	// never mutated.
	Space *qspace.HilbertSpace
	// Parameter is the subsystem parameter set by the default update.
	Parameter string
	// Values are the swept parameter values, one per point.
	Values []float64
	// Affected are the indices of the subsystems the sweep updates.
	Affected []int
	// Update overrides the default update, which sets Parameter on every
	// affected subsystem.
	Update UpdateFunc
	// EvalsCount is the number of dressed eigenvalues per point.
	EvalsCount int
	// Workers is the pool size. Zero means one worker per physical core.
	Workers int
	// KeepVecs stores dressed eigenvectors in the point records.
	KeepVecs bool
	// Archive, when non-nil, persists every finished point.
	Archive *Store
	// Logger receives sweep lifecycle events.
	Logger zerolog.Logger
}

func (cfg *Config) validate() error {
	if cfg.Space == nil {
		return errors.Errorf("nil space")
	}
	if len(cfg.Values) == 0 {
		return errors.Errorf("no sweep values")
	}
	if cfg.EvalsCount < 1 {
		return errors.Errorf("eigenvalue count %d", cfg.EvalsCount)
	}
	if len(cfg.Affected) == 0 {
		return errors.Errorf("no affected subsystems")
	}
	for _, i := range cfg.Affected {
		if i < 0 || i >= cfg.Space.NumSubsystems() {
			return errors.Errorf("affected subsystem %d out of range [0, %d)", i, cfg.Space.NumSubsystems())
		}
	}
	if cfg.Parameter == "" && cfg.Update == nil {
		return errors.Errorf("neither a parameter name nor an update function")
	}
	return nil
}

// Point is the record of one sweep point. Records are immutable once a point
// reaches Done or Failed.
type Point struct {
	// Value is the swept parameter value.
	Value float64
	// Status is the point's final lifecycle state.
	Status Status
	// Err is set when Status is Failed.
	Err error
	// Bare holds every subsystem's bare eigenvalues at this point.
	Bare [][]float64
	// Dressed holds the lowest eigenvalues of the full Hamiltonian,
	// ascending.
	Dressed []float64
	// Vecs holds the matching eigenvectors when Config.KeepVecs is set.
	Vecs [][]complex128
}

type indexedPoint struct {
	i int
	p Point
}

// Summary counts sweep points by final state.
type Summary struct {
	Done    int
	Failed  int
	Pending int
	// FailedPoints lists the indices of Failed points, ascending.
	FailedPoints []int
}

// Result holds the records of a finished sweep. Records are safe for
// concurrent reads.
type Result struct {
	// RunID identifies this sweep in logs and archives.
	RunID  string
	points []Point
}

// NumPoints returns the number of sweep points.
func (r *Result) NumPoints() int {
	return len(r.points)
}

// Point returns a copy of the i-th point's record.
func (r *Result) Point(i int) (Point, error) {
	p, err := r.point(i)
	if err != nil {
		return Point{}, err
	}
	return *p, nil
}

// BareEigenvalues returns the bare eigenvalues of one subsystem at one point.
func (r *Result) BareEigenvalues(subsystem, point int) ([]float64, error) {
	p, err := r.done(point)
	if err != nil {
		return nil, err
	}
	if subsystem < 0 || subsystem >= len(p.Bare) {
		return nil, errors.Errorf("subsystem %d out of range [0, %d)", subsystem, len(p.Bare))
	}
	return p.Bare[subsystem], nil
}

// DressedEigenvalues returns the dressed eigenvalues at one point, ascending.
func (r *Result) DressedEigenvalues(point int) ([]float64, error) {
	p, err := r.done(point)
	if err != nil {
		return nil, err
	}
	return p.Dressed, nil
}

// DressedEigenvectors returns the dressed eigenvectors at one point. It fails
// unless the sweep ran with Config.KeepVecs.
func (r *Result) DressedEigenvectors(point int) ([][]complex128, error) {
	p, err := r.done(point)
	if err != nil {
		return nil, err
	}
	if p.Vecs == nil {
		return nil, errors.Errorf("point %d has no eigenvectors", point)
	}
	return p.Vecs, nil
}

// Summary tallies the final state of every point.
func (r *Result) Summary() Summary {
	var s Summary
	for i := range r.points {
		switch r.points[i].Status {
		case Done:
			s.Done++
		case Failed:
			s.Failed++
			s.FailedPoints = append(s.FailedPoints, i)
		default:
			s.Pending++
		}
	}
	return s
}

func (r *Result) point(i int) (*Point, error) {
	if i < 0 || i >= len(r.points) {
		return nil, errors.Errorf("point %d out of range [0, %d)", i, len(r.points))
	}
	return &r.points[i], nil
}

func (r *Result) done(i int) (*Point, error) {
	p, err := r.point(i)
	if err != nil {
		return nil, err
	}
	if p.Status != Done {
		if p.Err != nil {
			return nil, errors.Wrapf(p.Err, "point %d %s", i, p.Status)
		}
		return nil, errors.Errorf("point %d %s", i, p.Status)
	}
	return p, nil
}

// Run sweeps the space over cfg.Values and collects a record per point.
// Cancelling ctx abandons not yet started points, which stay Pending, and
// returns ctx.Err() together with the records finished so far.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := cfg.Logger.With().Str("run_id", runID).Str("parameter", cfg.Parameter).Logger()

	workers := cfg.Workers
	if workers < 1 {
		workers = physicalCores()
	}
	if workers > len(cfg.Values) {
		workers = len(cfg.Values)
	}
	checkMemory(log, cfg.Space.Dim(), workers)
	log.Info().Int("points", len(cfg.Values)).Int("workers", workers).Int("dim", cfg.Space.Dim()).Msg("sweep started")

	res := &Result{RunID: runID, points: make([]Point, len(cfg.Values))}
	for i, v := range cfg.Values {
		res.points[i] = Point{Value: v, Status: Pending}
	}

	jobs := make(chan int, len(cfg.Values))
	results := make(chan indexedPoint, len(cfg.Values))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Abandoned points stay Pending.
				if ctx.Err() != nil {
					continue
				}
				results <- indexedPoint{i: i, p: computePoint(log, &cfg, i)}
			}
		}()
	}
	for i := range cfg.Values {
		jobs <- i
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	// The collector is the only writer of res. A record is published only
	// once fully computed, so reads after Run need no locking.
	throttle := newSkipThrottler(progressEvery)
	var completed int
	for r := range results {
		res.points[r.i] = r.p
		completed++

		switch r.p.Status {
		case Failed:
			log.Warn().Int("point", r.i).Float64("value", r.p.Value).Err(r.p.Err).Msg("sweep point failed")
		default:
			log.Debug().Int("point", r.i).Float64("value", r.p.Value).Msg("sweep point done")
		}
		if throttle.Ok() {
			log.Info().Int("completed", completed).Int("total", len(cfg.Values)).Msg("sweep progress")
		}

		if cfg.Archive != nil {
			// A fresh context, so that finished points are archived even
			// when the sweep itself is being cancelled.
			if err := cfg.Archive.SavePoint(context.Background(), runID, r.i, r.p); err != nil {
				log.Error().Int("point", r.i).Err(err).Msg("archive point")
			}
		}
	}

	s := res.Summary()
	log.Info().Int("done", s.Done).Int("failed", s.Failed).Int("pending", s.Pending).Msg("sweep finished")

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func computePoint(log zerolog.Logger, cfg *Config, i int) Point {
	value := cfg.Values[i]
	p := Point{Value: value, Status: Computing}
	log.Debug().Int("point", i).Float64("value", value).Msg("sweep point computing")

	space := cfg.Space.Clone()
	space.SetLogger(log)
	affected := make([]qspace.Subsystem, len(cfg.Affected))
	for j, s := range cfg.Affected {
		affected[j] = space.Subsystem(s)
	}

	update := cfg.Update
	if update == nil {
		update = func(v float64, subs []qspace.Subsystem) error {
			for _, sub := range subs {
				if err := sub.SetParameter(cfg.Parameter, v); err != nil {
					return err
				}
			}
			return nil
		}
	}
	if err := update(value, affected); err != nil {
		p.Status, p.Err = Failed, errors.Wrap(err, "update")
		return p
	}

	// Unaffected subsystems answer from the caches carried by the clone,
	// only the updated ones recompute.
	p.Bare = make([][]float64, space.NumSubsystems())
	for j := 0; j < space.NumSubsystems(); j++ {
		evals, err := space.Subsystem(j).BareEigenvalues()
		if err != nil {
			p.Status, p.Err = Failed, errors.Wrapf(err, "subsystem %d", j)
			return p
		}
		p.Bare[j] = evals
	}

	spectrum, err := space.Eigensystem(cfg.EvalsCount)
	if err != nil {
		p.Status, p.Err = Failed, err
		return p
	}
	p.Dressed = spectrum.Evals
	if cfg.KeepVecs {
		p.Vecs = spectrum.Evecs
	}
	p.Status = Done
	return p
}

// physicalCores sizes the default worker pool.
// Eigensolves are compute bound, hyperthreads do not help them.
func physicalCores() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// checkMemory warns when concurrent dense solves may not fit in memory. The
// dense path factors the real symmetric embedding of the Hamiltonian, two
// dense 2D x 2D float64 matrices per worker.
func checkMemory(log zerolog.Logger, dim, workers int) {
	need := uint64(workers) * 16 * uint64(2*dim) * uint64(2*dim)
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug().Err(err).Msg("virtual memory statistics unavailable")
		return
	}
	if need > vm.Available {
		log.Warn().Uint64("needed", need).Uint64("available", vm.Available).
			Msg("dense eigensolves may exceed available memory, consider fewer workers or a lower dense limit")
	}
}
