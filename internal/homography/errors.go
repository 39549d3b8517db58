package homography

import (
	"errors"
	"fmt"
)

var (
	// ErrSingularMatrix reports a pivot at or below the solver epsilon. The
	// correspondence set is degenerate (collinear or repeated points).
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrMalformedInput reports a correspondence set that cannot be built into a
	// system: wrong number of pairs, non-finite coordinates, or coordinates
	// whose products overflow float64.
	ErrMalformedInput = errors.New("malformed input")
)

// SingularMatrixError carries the elimination column and the pivot that failed
// the epsilon check. When elimination succeeded but the solution sends a
// source corner to the line at infinity, Column is -1 and Corner names that
// correspondence. Overflow marks a solution component in Column that came
// out non-finite.
type SingularMatrixError struct {
	Column   int
	Pivot    float64
	Corner   int
	Overflow bool
}

func (e *SingularMatrixError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("singular matrix: solution overflows in column %d", e.Column)
	}
	if e.Column < 0 {
		return fmt.Sprintf("singular matrix: projective denominator %g at corner %d", e.Pivot, e.Corner)
	}
	return fmt.Sprintf("singular matrix: pivot %g in column %d", e.Pivot, e.Column)
}

// Is makes errors.Is(err, ErrSingularMatrix) hold.
func (e *SingularMatrixError) Is(target error) bool { return target == ErrSingularMatrix }

// MalformedInputError describes why a correspondence set was rejected.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.Reason
}

// Is makes errors.Is(err, ErrMalformedInput) hold.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
