package qspace

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrLookupNotGenerated is returned by lookup queries before GenerateLookup
	// has run, or after a parameter or interaction change invalidated the table.
	ErrLookupNotGenerated = errors.New("lookup not generated")

	// ErrUnassignedBareState is returned when no dressed state has the queried
	// bare state as its dominant component.
	ErrUnassignedBareState = errors.New("bare state not assigned to a dressed state")

	// ErrDressedIndexOutOfRange is returned when a dressed index is outside the
	// range covered by the generated lookup.
	ErrDressedIndexOutOfRange = errors.New("dressed index out of range")
)

// ConstructionError indicates invalid input to a Hamiltonian or lookup build:
// mismatched dimensions, out of range subsystems, unbound operator names.
type ConstructionError struct {
	Reason string
	Err    error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func constructionErrorf(format string, args ...any) error {
	return errors.WithStack(&ConstructionError{Reason: fmt.Sprintf(format, args...)})
}

func wrapConstruction(err error, format string, args ...any) error {
	return errors.WithStack(&ConstructionError{Reason: fmt.Sprintf(format, args...), Err: err})
}

// ConvergenceError indicates that diagonalization failed. It is recoverable:
// a parameter sweep records it for the failing point and moves on.
type ConvergenceError struct {
	Dim        int
	EvalsCount int
	Err        error
}

func (e *ConvergenceError) Error() string {
	return "diagonalization of dimension " + strconv.Itoa(e.Dim) +
		" for " + strconv.Itoa(e.EvalsCount) + " eigenvalues failed: " + e.Err.Error()
}

func (e *ConvergenceError) Unwrap() error { return e.Err }
