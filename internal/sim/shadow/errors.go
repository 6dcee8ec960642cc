package shadow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks an update the caller must not submit, such as a
	// coordinate outside the grid. The update is refused and nothing else changes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsatisfiable marks goal shadows that no voxel set can cast.
	ErrUnsatisfiable = errors.New("goals unsatisfiable")
)

type InvalidInputError struct {
	Field  string
	Value  int
	Text   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Text, e.Reason)
	}
	return fmt.Sprintf("invalid %s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// UnpairedColumnError reports a column x that one goal covers and the other
// goal leaves empty. Voxels in column x are the only way to cast squares with
// that x, so the covered squares cannot be produced without also covering a
// square in the empty goal.
type UnpairedColumnError struct {
	X       int
	Missing Axis
}

func (e *UnpairedColumnError) Error() string {
	return fmt.Sprintf("column x=%d has no squares in the %s goal", e.X, e.Missing)
}

func (e *UnpairedColumnError) Unwrap() error { return ErrUnsatisfiable }
