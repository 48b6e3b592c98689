package cast

import (
	"errors"
	"fmt"
)

// Failure classes of a drilling run. Every error returned by this package
// wraps exactly one of these and can be tested with errors.Is.
var (
	// ErrNotFound is returned when an input file does not exist.
	ErrNotFound = errors.New("input not found")
	// ErrFormat is returned for unsupported or malformed files and options.
	ErrFormat = errors.New("bad format")
	// ErrToleranceExceeded is returned when a ring cannot be filled within
	// the angular tolerance and scan pass budget.
	ErrToleranceExceeded = errors.New("angular tolerance exceeded")
	// ErrGeometryMismatch is returned when a cutting plane misses the
	// surface or the ring is too small for the requested hole count.
	ErrGeometryMismatch = errors.New("geometry mismatch")
	// ErrDegenerateTangent is returned when every sample in a tangent window
	// is a duplicate point.
	ErrDegenerateTangent = errors.New("degenerate tangent")
	// ErrValue is returned for numeric arguments the angular search cannot work with.
	ErrValue = errors.New("bad value")
	// ErrWriteFailure is returned when an output file could not be written.
	ErrWriteFailure = errors.New("write failed")
	// ErrNotLoaded and ErrNotPlanned are returned when a Pipeline method
	// is called before the data it needs exists.
	ErrNotLoaded  = errors.New("pipeline inputs not loaded")
	ErrNotPlanned = errors.New("pipeline holes not planned")
)

// StationError annotates a ring planning failure with the station it occurred at.
type StationError struct {
	// Station is the position in the station list, Index the curve index.
	Station, Index int
	Err            error
}

func (e *StationError) Error() string {
	return fmt.Sprintf("station %d (curve index %d): %s", e.Station, e.Index, e.Err)
}

func (e *StationError) Unwrap() error { return e.Err }

// Exit codes of the castdrill command.
const (
	ExitOK = iota
	ExitWrite
	ExitInput
	ExitRuntime
	ExitValue
)

// ExitCode maps err to the process exit code documented for castdrill.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrWriteFailure):
		return ExitWrite
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrFormat):
		return ExitInput
	case errors.Is(err, ErrValue):
		return ExitValue
	}
	return ExitRuntime
}
