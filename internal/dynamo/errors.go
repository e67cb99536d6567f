package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for ingredient, sampler and aggregation operations.
var (
	// ErrInvalidState indicates a tensor holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched tensor or per-mode dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrInvalidBatchShape indicates an array argument whose leading axis
	// does not match the batch size.
	ErrInvalidBatchShape = errors.New("dynamo: invalid batch shape")

	// ErrZeroNormalization indicates a record or merge with zero total weight.
	ErrZeroNormalization = errors.New("dynamo: zero normalization weight")

	// ErrUnsupportedValueType indicates a value that cannot be persisted or merged.
	ErrUnsupportedValueType = errors.New("dynamo: unsupported value type")

	// ErrMissingRequiredConstant indicates a constant read without default that was never set.
	ErrMissingRequiredConstant = errors.New("dynamo: missing required constant")
)

// BatchError reports which argument broke the batch-shape contract.
type BatchError struct {
	Key  string
	Want int
	Got  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: argument %q has leading length %d, batch size is %d",
		ErrInvalidBatchShape, e.Key, e.Got, e.Want)
}

func (e *BatchError) Unwrap() error {
	return ErrInvalidBatchShape
}

// SimulationError wraps an error with the batch and step it occurred at.
type SimulationError struct {
	Batch   int
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("batch %d step %d (t=%.4f): %v", e.Batch, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
