package physics

import (
	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/ingredient"
)

type couplingDims struct {
	states, modes int
	gamma         [][]float64
}

func readCoupling(c *constants.Constants) (couplingDims, error) {
	states, err := c.Int(constants.NumQuantumStates)
	if err != nil {
		return couplingDims{}, err
	}
	modes, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return couplingDims{}, err
	}
	gamma, err := c.Matrix(DiagonalLinearCoupling, states, modes)
	if err != nil {
		return couplingDims{}, err
	}
	return couplingDims{states: states, modes: modes, gamma: gamma}, nil
}

// DiagonalLinearHqc returns H_ii = Σ_j γ_ij (z_j + z_j*), zero off the
// diagonal.
func DiagonalLinearHqc(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	z, batch, err := coordinates(kw)
	if err != nil {
		return nil, err
	}
	d, err := readCoupling(owner.Constants())
	if err != nil {
		return nil, err
	}
	if err := checkModes(z, d.modes); err != nil {
		return nil, err
	}
	out := dynamo.NewTensor(batch, d.states, d.states)
	for b := 0; b < batch; b++ {
		zRow := z.RowView(b)
		for i := 0; i < d.states; i++ {
			var sum complex128
			for j, v := range zRow {
				sum += complex(d.gamma[i][j]*2*real(v), 0)
			}
			out.Set(sum, b, i, i)
		}
	}
	return out, nil
}

func diagonalLinearGradient(_ ingredient.Owner, c *constants.Constants, params ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	batch, err := ingredient.ResolveBatchSize(params, kw)
	if err != nil {
		return nil, err
	}
	d, err := readCoupling(c)
	if err != nil {
		return nil, err
	}
	single := dynamo.NewTensor(d.modes, d.states, d.states)
	for i := 0; i < d.states; i++ {
		for j := 0; j < d.modes; j++ {
			single.Set(complex(d.gamma[i][j], 0), j, i, i)
		}
	}
	return dynamo.Tile(single, batch), nil
}

var sparseDiagonalLinearGradient = ingredient.Sparsify(diagonalLinearGradient)

// DiagonalLinearDhqcDzc returns ∂H_qc/∂z* as a sparse (batch, modes, states,
// states) tensor with element [b, j, i, i] = γ_ij. It is memoized on the
// owner by batch size.
func DiagonalLinearDhqcDzc(owner ingredient.Owner, params ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.SparseTensor, error) {
	batch, err := ingredient.ResolveBatchSize(params, kw)
	if err != nil {
		return nil, err
	}
	build := func(batch int) (*dynamo.SparseTensor, error) {
		fixed := ingredient.Kwargs{ingredient.BatchSizeKey: batch}
		return sparseDiagonalLinearGradient(owner, owner.Constants(), params, fixed)
	}
	if co, ok := owner.(cacheOwner); ok {
		return co.couplingGradientCache().Get(batch, build)
	}
	return build(batch)
}
