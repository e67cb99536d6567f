// Package ingredient adapts per-trajectory physics functions into batched
// and sparse kernels.
//
// An ingredient is any function with the driver-facing signature
//
//	func(owner Owner, params Parameters, kw Kwargs) (*dynamo.Tensor, error)
//
// [Vectorize] lifts a function written for one trajectory into one that
// runs over a whole batch, [Sparsify] turns a dense tensor result into a
// [dynamo.SparseTensor], and [OperatorCache] memoizes batch-size dependent
// operators on the model that owns them.
package ingredient
