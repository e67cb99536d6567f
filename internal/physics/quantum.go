package physics

import (
	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/ingredient"
)

const (
	TwoLevelA               = "two_level_system_a"
	TwoLevelB               = "two_level_system_b"
	TwoLevelC               = "two_level_system_c"
	TwoLevelD               = "two_level_system_d"
	LatticeHoppingEnergy    = "nearest_neighbor_lattice_hopping_energy"
	LatticePeriodicBoundary = "nearest_neighbor_lattice_periodic_boundary"
	DiagonalLinearCoupling  = "diagonal_linear_coupling"
)

// TwoLevelSystemHq returns [[a, c+id], [c−id, b]] for every trajectory.
// Unset constants default to zero.
func TwoLevelSystemHq(owner ingredient.Owner, params ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	batch, err := ingredient.ResolveBatchSize(params, kw)
	if err != nil {
		return nil, err
	}
	c := owner.Constants()
	var v [4]float64
	for i, name := range []string{TwoLevelA, TwoLevelB, TwoLevelC, TwoLevelD} {
		if v[i], err = c.FloatOr(name, 0); err != nil {
			return nil, err
		}
	}
	single, _ := dynamo.FromSlice([]complex128{
		complex(v[0], 0), complex(v[2], v[3]),
		complex(v[2], -v[3]), complex(v[1], 0),
	}, 2, 2)
	return dynamo.Tile(single, batch), nil
}

// NearestNeighborLatticeHq returns the tight-binding hopping matrix with
// −t on the first off-diagonals, and on the corners when the boundary is
// periodic. The result is memoized on the owner by batch size and shared
// between calls; callers must not modify it.
func NearestNeighborLatticeHq(owner ingredient.Owner, params ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	batch, err := ingredient.ResolveBatchSize(params, kw)
	if err != nil {
		return nil, err
	}
	build := func(batch int) (*dynamo.Tensor, error) {
		return buildLatticeHq(owner.Constants(), batch)
	}
	if co, ok := owner.(cacheOwner); ok {
		return co.latticeCache().Get(batch, build)
	}
	return build(batch)
}

func buildLatticeHq(c *constants.Constants, batch int) (*dynamo.Tensor, error) {
	n, err := c.Int(constants.NumQuantumStates)
	if err != nil {
		return nil, err
	}
	t, err := c.Float(LatticeHoppingEnergy)
	if err != nil {
		return nil, err
	}
	periodic, err := c.Bool(LatticePeriodicBoundary, false)
	if err != nil {
		return nil, err
	}
	h := dynamo.NewTensor(n, n)
	hop := complex(-t, 0)
	for i := 0; i+1 < n; i++ {
		h.Set(h.At(i, i+1)+hop, i, i+1)
		h.Set(h.At(i+1, i)+hop, i+1, i)
	}
	if periodic && n > 1 {
		h.Set(h.At(0, n-1)+hop, 0, n-1)
		h.Set(h.At(n-1, 0)+hop, n-1, 0)
	}
	return dynamo.Tile(h, batch), nil
}
