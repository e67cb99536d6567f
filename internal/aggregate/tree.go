package aggregate

import (
	"fmt"

	"github.com/san-kum/qclab/internal/dynamo"
)

// Tree returns the nested mapping persisted for d: the output values plus
// the seed and norm_factor entries. The mapping shares no storage with d.
func (d *Data) Tree() map[string]any {
	tree := cloneMap(d.Values)
	tree[SeedKey] = append([]int64{}, d.Seeds...)
	tree[NormFactorKey] = d.NormFactor
	return tree
}

// FromTree rebuilds an accumulator from a mapping produced by Tree.
func FromTree(tree map[string]any) (*Data, error) {
	d := New()
	for key, v := range tree {
		switch key {
		case SeedKey:
			seeds, err := seedSlice(v)
			if err != nil {
				return nil, err
			}
			d.Seeds = seeds
		case NormFactorKey:
			norm, ok := realScalar(v)
			if !ok {
				return nil, fmt.Errorf("%s: have %T: %w", NormFactorKey, v, dynamo.ErrUnsupportedValueType)
			}
			d.NormFactor = norm
		default:
			d.Values[key] = cloneValue(v)
		}
	}
	return d, nil
}

func seedSlice(v any) ([]int64, error) {
	switch x := v.(type) {
	case []int64:
		return append([]int64(nil), x...), nil
	case []float64:
		out := make([]int64, len(x))
		for i, f := range x {
			out[i] = int64(f)
		}
		return out, nil
	case *dynamo.Tensor:
		out := make([]int64, x.Size())
		for i, c := range x.Data() {
			out[i] = int64(real(c))
		}
		return out, nil
	case []any:
		out := make([]int64, len(x))
		for i, e := range x {
			n, ok := realScalar(e)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: have %T: %w", SeedKey, i, e, dynamo.ErrUnsupportedValueType)
			}
			out[i] = int64(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: have %T: %w", SeedKey, v, dynamo.ErrUnsupportedValueType)
}
