package dynamo

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

// Tensor is a dense row-major complex tensor. Axis 0 is the batch axis for
// every per-trajectory quantity.
type Tensor struct {
	shape []int
	data  []complex128
}

// NewTensor returns a zero-filled tensor. With no dimensions it is a 0-D
// scalar holding a single element.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{shape: append([]int(nil), shape...), data: make([]complex128, numElements(shape))}
}

// FromSlice wraps data (not copied) with the given shape.
func FromSlice(data []complex128, shape ...int) (*Tensor, error) {
	if n := numElements(shape); n != len(data) {
		return nil, fmt.Errorf("%w: %d elements for shape %v (needs %d)", ErrDimensionMismatch, len(data), shape, n)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// FromReal copies real values into a new tensor of the given shape.
func FromReal(data []float64, shape ...int) (*Tensor, error) {
	c := make([]complex128, len(data))
	for i, v := range data {
		c[i] = complex(v, 0)
	}
	return FromSlice(c, shape...)
}

// Vector returns a 1-D tensor over a copy of v.
func Vector(v []complex128) *Tensor {
	return &Tensor{shape: []int{len(v)}, data: append([]complex128(nil), v...)}
}

// Scalar returns a 0-D tensor.
func Scalar(v complex128) *Tensor {
	return &Tensor{shape: []int{}, data: []complex128{v}}
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }
func (t *Tensor) Rank() int    { return len(t.shape) }
func (t *Tensor) Size() int    { return len(t.data) }

// Data exposes the row-major backing slice.
func (t *Tensor) Data() []complex128 { return t.data }

// Len returns the length of the leading axis, or 0 for a scalar.
func (t *Tensor) Len() int {
	if len(t.shape) == 0 {
		return 0
	}
	return t.shape[0]
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("dynamo: %d indices for rank %d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for axis, i := range idx {
		if i < 0 || i >= t.shape[axis] {
			panic(fmt.Sprintf("dynamo: index %d out of range for axis %d (len %d)", i, axis, t.shape[axis]))
		}
		off = off*t.shape[axis] + i
	}
	return off
}

func (t *Tensor) At(idx ...int) complex128 { return t.data[t.offset(idx)] }

func (t *Tensor) Set(v complex128, idx ...int) { t.data[t.offset(idx)] = v }

// Row copies the sub-tensor at position n of the leading axis.
func (t *Tensor) Row(n int) *Tensor {
	if len(t.shape) == 0 {
		panic("dynamo: Row on scalar tensor")
	}
	stride := len(t.data) / max(t.shape[0], 1)
	out := NewTensor(t.shape[1:]...)
	copy(out.data, t.data[n*stride:(n+1)*stride])
	return out
}

// RowView returns position n of the leading axis sharing storage with t.
func (t *Tensor) RowView(n int) []complex128 {
	stride := len(t.data) / max(t.shape[0], 1)
	return t.data[n*stride : (n+1)*stride]
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.Shape(), data: append([]complex128(nil), t.data...)}
}

// Real returns the real parts in row-major order.
func (t *Tensor) Real() []float64 {
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = real(v)
	}
	return out
}

func (t *Tensor) IsValid() bool {
	for _, v := range t.data {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.shape) != len(o.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != o.shape[i] {
			return false
		}
	}
	return true
}

// Equal reports exact equality of shape and values.
func (t *Tensor) Equal(o *Tensor) bool {
	return t.SameShape(o) && cmplxs.Equal(t.data, o.data)
}

// EqualApprox compares values with an absolute-or-relative tolerance.
func (t *Tensor) EqualApprox(o *Tensor, tol float64) bool {
	return t.SameShape(o) && cmplxs.EqualApprox(t.data, o.data, tol)
}

// Scale returns factor*t.
func (t *Tensor) Scale(factor complex128) *Tensor {
	out := t.Clone()
	cmplxs.Scale(factor, out.data)
	return out
}

// Add returns t+o. Shapes must match.
func (t *Tensor) Add(o *Tensor) (*Tensor, error) {
	if !t.SameShape(o) {
		return nil, fmt.Errorf("%w: %v + %v", ErrDimensionMismatch, t.shape, o.shape)
	}
	out := t.Clone()
	cmplxs.Add(out.data, o.data)
	return out, nil
}

// SumAxis0 sums over the leading axis.
func (t *Tensor) SumAxis0() *Tensor {
	if len(t.shape) == 0 {
		return t.Clone()
	}
	out := NewTensor(t.shape[1:]...)
	for n := 0; n < t.shape[0]; n++ {
		cmplxs.Add(out.data, t.RowView(n))
	}
	return out
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack(parts []*Tensor) (*Tensor, error) {
	if len(parts) == 0 {
		return NewTensor(0), nil
	}
	inner := parts[0].shape
	out := NewTensor(append([]int{len(parts)}, inner...)...)
	stride := numElements(inner)
	for n, p := range parts {
		if !p.SameShape(parts[0]) {
			return nil, fmt.Errorf("%w: element %d has shape %v, want %v", ErrInvalidBatchShape, n, p.shape, inner)
		}
		copy(out.data[n*stride:], p.data)
	}
	return out, nil
}

// Tile repeats t along a new leading axis of length n.
func Tile(t *Tensor, n int) *Tensor {
	out := NewTensor(append([]int{n}, t.shape...)...)
	for i := 0; i < n; i++ {
		copy(out.data[i*len(t.data):], t.data)
	}
	return out
}

// Norm returns the Euclidean norm over all elements.
func (t *Tensor) Norm() float64 {
	sum := 0.0
	for _, v := range t.data {
		a := cmplx.Abs(v)
		sum += a * a
	}
	return math.Sqrt(sum)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v%v", t.shape, t.data)
}
