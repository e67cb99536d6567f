package physics

import (
	"fmt"

	"github.com/san-kum/qclab/internal/dynamo"
)

type dimensionError struct {
	what  string
	shape []int
	modes int
}

func (e *dimensionError) Error() string {
	return fmt.Sprintf("%s: %s has shape %v, want (batch, %d)", dynamo.ErrDimensionMismatch, e.what, e.shape, e.modes)
}

func (e *dimensionError) Unwrap() error { return dynamo.ErrDimensionMismatch }
