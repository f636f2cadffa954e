// Command run sweeps the Josephson energy of a transmon coupled to a readout
// resonator and writes the dressed spectra to a run directory.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ksaito/qspace"
	"github.com/ksaito/qspace/config"
	"github.com/ksaito/qspace/logger"
	"github.com/ksaito/qspace/qubit"
	"github.com/ksaito/qspace/sweep"
)

const (
	fnameEigen = "eig.csv"
)

var (
	runDir = flag.String("d", filepath.Join("runs", "qspace"), "run directory")
	points = flag.Int("points", 21, "number of sweep points")
	evals  = flag.Int("evals", 8, "dressed eigenvalues per point")
)

// The swept circuit: a transmon read out through a resonator, coupled by
// g*n*(a+adag), with the Josephson energy swept over ejFrom..ejTo.
const (
	transmonDim = 6
	chargeCut   = 30
	ejFrom      = 15.0
	ejTo        = 25.0
	ec          = 0.25
	resDim      = 8
	resFreq     = 5.5
	g           = 0.08
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "")
	}
	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	space, err := buildCircuit()
	if err != nil {
		return errors.Wrap(err, "")
	}
	space.SetLogger(zlog)
	space.SetDenseLimit(cfg.DenseLimit)

	values := make([]float64, *points)
	for i := range values {
		values[i] = ejFrom
		if *points > 1 {
			values[i] += (ejTo - ejFrom) * float64(i) / float64(*points-1)
		}
	}

	var archive *sweep.Store
	if cfg.ArchivePath != "" {
		archive, err = sweep.OpenStore(cfg.ArchivePath)
		if err != nil {
			return errors.Wrap(err, "")
		}
		defer archive.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := sweep.Run(ctx, sweep.Config{
		Space:      space,
		Parameter:  "EJ",
		Values:     values,
		Affected:   []int{0},
		EvalsCount: *evals,
		Workers:    cfg.Workers,
		Archive:    archive,
		Logger:     zlog,
	})
	if res == nil {
		return errors.Wrap(err, "")
	}
	if err != nil {
		zlog.Warn().Err(err).Msg("sweep interrupted, keeping finished points")
	}

	if err := writeEig(*runDir, res); err != nil {
		return errors.Wrap(err, "")
	}
	printSummary(res)

	if err := printLookup(space, res); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func buildCircuit() (*qspace.HilbertSpace, error) {
	tr, err := qubit.NewTransmon(transmonDim, chargeCut, ejFrom, ec, 0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	osc, err := qubit.NewOscillator(resDim, resFreq, 0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	space, err := qspace.New(tr, osc)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	// The charge operator is resolved by name at every Hamiltonian build, so
	// the coupling follows the transmon as EJ is swept.
	coupling := qspace.Mul(qspace.Op("n"), qspace.Add(qspace.Op("a"), qspace.Dag(qspace.Op("a"))))
	term, err := qspace.NewExprTerm(g, coupling, map[string]qspace.TermOp{
		"n": {Subsystem: 0, Name: "n"},
		"a": {Subsystem: 1, Name: "a"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	space.AddInteraction(term)
	return space, nil
}

func writeEig(dir string, res *sweep.Result) error {
	fpath := filepath.Join(dir, fnameEigen)
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	w := csv.NewWriter(f)

	ncols := 0
	for i := 0; i < res.NumPoints(); i++ {
		if dressed, err1 := res.DressedEigenvalues(i); err1 == nil {
			ncols = len(dressed)
			break
		}
	}
	header := []string{"point", "ej", "status"}
	for j := 0; j < ncols; j++ {
		header = append(header, fmt.Sprintf("e%d", j))
	}

	if err1 := w.Write(header); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	for i := 0; i < res.NumPoints(); i++ {
		p, err1 := res.Point(i)
		if err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
		row := []string{strconv.Itoa(i), strconv.FormatFloat(p.Value, 'f', -1, 64), p.Status.String()}
		for _, e := range p.Dressed {
			row = append(row, strconv.FormatFloat(e, 'f', -1, 64))
		}
		if err1 := w.Write(row); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
			break
		}
	}

	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

func printSummary(res *sweep.Result) {
	fmt.Printf("point,ej,status,e01\n")
	for i := 0; i < res.NumPoints(); i++ {
		p, err := res.Point(i)
		if err != nil {
			continue
		}
		e01 := ""
		if p.Status == sweep.Done && len(p.Dressed) > 1 {
			e01 = strconv.FormatFloat(p.Dressed[1]-p.Dressed[0], 'f', 6, 64)
		}
		fmt.Printf("%d,%f,%s,%s\n", i, p.Value, p.Status, e01)
	}
	s := res.Summary()
	fmt.Printf("done %d, failed %d, pending %d\n", s.Done, s.Failed, s.Pending)
}

// printLookup labels the lowest transmon and resonator excitations of the last
// finished point by their dressed indices.
func printLookup(space *qspace.HilbertSpace, res *sweep.Result) error {
	last := -1
	for i := res.NumPoints() - 1; i >= 0; i-- {
		if p, err := res.Point(i); err == nil && p.Status == sweep.Done {
			last = i
			break
		}
	}
	if last < 0 {
		return nil
	}

	p, err := res.Point(last)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := space.SetParameter(0, "EJ", p.Value); err != nil {
		return errors.Wrap(err, "")
	}
	if err := space.GenerateLookup(*evals); err != nil {
		return errors.Wrap(err, "")
	}

	fmt.Printf("bare states at EJ=%f\n", p.Value)
	for _, bare := range [][]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		j, err := space.DressedIndex(bare)
		switch {
		case errors.Is(err, qspace.ErrUnassignedBareState):
			fmt.Printf("%v unassigned\n", bare)
			continue
		case err != nil:
			return errors.Wrap(err, "")
		}
		e, err := space.EnergyByDressedIndex(j)
		if err != nil {
			return errors.Wrap(err, "")
		}
		fmt.Printf("%v -> dressed %d, energy %f\n", bare, j, e)
	}
	return nil
}
