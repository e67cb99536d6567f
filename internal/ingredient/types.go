package ingredient

import (
	"errors"
	"fmt"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
)

// BatchSizeKey is the kwarg that overrides the batch size.
const BatchSizeKey = "batch_size"

var ErrMissingArgument = errors.New("ingredient: missing argument")

// Owner is the model instance an ingredient belongs to.
type Owner interface {
	Constants() *constants.Constants
}

// Parameters is the per-run object handed to every ingredient.
type Parameters interface {
	Seeds() []int64
}

// SeedList is the simplest Parameters implementation.
type SeedList []int64

func (s SeedList) Seeds() []int64 { return s }

// Kwargs carries per-call tensors and options.
type Kwargs map[string]any

// Func is the driver-facing ingredient signature.
type Func func(owner Owner, params Parameters, kw Kwargs) (*dynamo.Tensor, error)

// DenseFunc receives the constants explicitly.
type DenseFunc func(owner Owner, c *constants.Constants, params Parameters, kw Kwargs) (*dynamo.Tensor, error)

// SparseFunc is a DenseFunc whose result is returned as a sparse triple.
type SparseFunc func(owner Owner, c *constants.Constants, params Parameters, kw Kwargs) (*dynamo.SparseTensor, error)

// WithOwnerConstants adapts a DenseFunc to the driver-facing signature by
// reading constants from the owner.
func WithOwnerConstants(g DenseFunc) Func {
	return func(owner Owner, params Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		return g(owner, owner.Constants(), params, kw)
	}
}

// BatchSize returns the explicit override, if any.
func (kw Kwargs) BatchSize() (int, bool) {
	switch v := kw[BatchSizeKey].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Tensor returns a required tensor argument.
func (kw Kwargs) Tensor(name string) (*dynamo.Tensor, error) {
	v, ok := kw[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	t, ok := v.(*dynamo.Tensor)
	if !ok {
		return nil, fmt.Errorf("argument %s: have %T, want *dynamo.Tensor: %w", name, v, dynamo.ErrUnsupportedValueType)
	}
	return t, nil
}

// Float returns a required real scalar argument. 0-D tensors are accepted.
func (kw Kwargs) Float(name string) (float64, error) {
	v, ok := kw[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case *dynamo.Tensor:
		if x.Size() == 1 {
			return real(x.Data()[0]), nil
		}
	}
	return 0, fmt.Errorf("argument %s: have %T, want float64: %w", name, v, dynamo.ErrUnsupportedValueType)
}

// ResolveBatchSize applies the override-then-seeds rule.
func ResolveBatchSize(params Parameters, kw Kwargs) (int, error) {
	if n, ok := kw.BatchSize(); ok {
		if n < 0 {
			return 0, fmt.Errorf("%w: batch_size %d", dynamo.ErrParameterBounds, n)
		}
		return n, nil
	}
	if params == nil {
		return 0, fmt.Errorf("%w: no batch_size and no parameters to infer it from", ErrMissingArgument)
	}
	return len(params.Seeds()), nil
}

// ResolveCoordinateBatch checks a coordinate tensor against the batch size
// override, or infers the batch size from it.
func ResolveCoordinateBatch(z *dynamo.Tensor, kw Kwargs, key string) (int, error) {
	if n, ok := kw.BatchSize(); ok {
		if z.Rank() == 0 || z.Len() != n {
			return 0, &dynamo.BatchError{Key: key, Want: n, Got: z.Len()}
		}
		return n, nil
	}
	return z.Len(), nil
}
