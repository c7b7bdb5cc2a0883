package crmap

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedUpdate is returned when update bytes, or an Update
	// value, violate the update format.
	ErrMalformedUpdate = errors.New("crmap: malformed update")
	// ErrCausalGap is returned when an update holds a block whose
	// predecessors from the same origin have not been applied.
	ErrCausalGap = errors.New("crmap: causal gap")
	// ErrProjection is returned when a payload has no known shape.
	ErrProjection = errors.New("crmap: projection")
)

// CausalGapError describes the first block found whose predecessors are
// missing. It matches ErrCausalGap with errors.Is.
type CausalGapError struct {
	Origin   ReplicaID
	Expected uint64
	Got      uint64
}

func (e *CausalGapError) Error() string {
	return fmt.Sprintf("%s: origin %d expected clock %d, got %d",
		ErrCausalGap, e.Origin, e.Expected, e.Got)
}

func (e *CausalGapError) Is(target error) bool {
	return target == ErrCausalGap
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedUpdate, fmt.Sprintf(format, args...))
}
