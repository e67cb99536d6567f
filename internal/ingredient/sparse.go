package ingredient

import (
	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
)

// Sparsify wraps g so that its dense result is returned as a sparse triple.
// Only elements exactly equal to zero are dropped.
func Sparsify(g DenseFunc) SparseFunc {
	return func(owner Owner, c *constants.Constants, params Parameters, kw Kwargs) (*dynamo.SparseTensor, error) {
		out, err := g(owner, c, params, kw)
		if err != nil {
			return nil, err
		}
		return dynamo.Sparsify(out), nil
	}
}

// Densify is the inverse adapter, used where a consumer needs the dense form.
func Densify(g SparseFunc) DenseFunc {
	return func(owner Owner, c *constants.Constants, params Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		sp, err := g(owner, c, params, kw)
		if err != nil {
			return nil, err
		}
		return sp.Dense(), nil
	}
}
