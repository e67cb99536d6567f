// Package dynamo provides the shared numeric primitives of the trajectory
// simulator.
//
// The package defines the dense and sparse tensor types that every
// ingredient, sampler and accumulator exchanges, plus the error taxonomy
// used across the module:
//
//   - [Tensor]: dense row-major complex tensor with a leading batch axis
//   - [SparseTensor]: (indices, values, shape) triple of a mostly-zero tensor
//   - [ErrInvalidBatchShape], [ErrZeroNormalization],
//     [ErrUnsupportedValueType], [ErrMissingRequiredConstant]
//
// # Example
//
//	z := dynamo.NewTensor(batchSize, numModes)
//	z.Set(complex(1, 0), 0, 0)
//	sp := dynamo.Sparsify(z)
//	dense := sp.Dense() // equal to z
//
// # Thread Safety
//
// Tensors are plain values without internal locking. Workers must not share
// a tensor they mutate.
package dynamo
