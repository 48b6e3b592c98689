package cast

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	for _, test := range []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{fmt.Errorf("%w: out.stl", ErrWriteFailure), ExitWrite},
		{fmt.Errorf("%w: in.stl", ErrNotFound), ExitInput},
		{ErrFormat, ExitInput},
		{&StationError{Station: 1, Index: 20, Err: ErrToleranceExceeded}, ExitRuntime},
		{ErrGeometryMismatch, ExitRuntime},
		{ErrDegenerateTangent, ExitRuntime},
		{errors.New("unclassified"), ExitRuntime},
		{fmt.Errorf("plan: %w", ErrValue), ExitValue},
	} {
		if got := ExitCode(test.err); got != test.want {
			t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
		}
	}
}

func TestStationError(t *testing.T) {
	err := fmt.Errorf("plan: %w", &StationError{Station: 3, Index: 120, Err: ErrGeometryMismatch})
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Error("station error does not unwrap")
	}
	const want = "plan: station 3 (curve index 120): geometry mismatch"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err, want)
	}
}
