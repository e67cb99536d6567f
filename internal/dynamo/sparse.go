package dynamo

// SparseTensor is the (indices, values, shape) form of a mostly-zero tensor.
// Indices[axis][k] is the coordinate along axis of the k-th stored value;
// entries are kept in row-major order.
type SparseTensor struct {
	Indices [][]int
	Values  []complex128
	Shape   []int
}

// Sparsify keeps every element that is not exactly zero.
func Sparsify(t *Tensor) *SparseTensor {
	rank := t.Rank()
	sp := &SparseTensor{Indices: make([][]int, rank), Shape: t.Shape()}
	idx := make([]int, rank)
	for _, v := range t.data {
		if v != 0 {
			for axis := range idx {
				sp.Indices[axis] = append(sp.Indices[axis], idx[axis])
			}
			sp.Values = append(sp.Values, v)
		}
		for axis := rank - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < t.shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}
	return sp
}

// NNZ returns the number of stored values.
func (s *SparseTensor) NNZ() int { return len(s.Values) }

// Dense zero-fills a tensor of Shape and scatters Values at Indices.
func (s *SparseTensor) Dense() *Tensor {
	out := NewTensor(s.Shape...)
	idx := make([]int, len(s.Shape))
	for k, v := range s.Values {
		for axis := range idx {
			idx[axis] = s.Indices[axis][k]
		}
		out.data[out.offset(idx)] = v
	}
	return out
}
