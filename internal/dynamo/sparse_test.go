package dynamo

import (
	"math/rand/v2"
	"testing"
)

func TestSparsifyRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	shapes := [][]int{{}, {5}, {3, 4}, {2, 3, 2, 2}, {0, 3}}
	for _, shape := range shapes {
		x := NewTensor(shape...)
		for i := range x.Data() {
			if r.Float64() < 0.4 {
				x.Data()[i] = complex(r.NormFloat64(), r.NormFloat64())
			}
		}

		sp := Sparsify(x)
		if got := sp.Dense(); !got.Equal(x) {
			t.Errorf("shape %v: dense reconstruction differs: got %v want %v", shape, got, x)
		}
		if len(sp.Indices) != len(shape) {
			t.Errorf("shape %v: expected %d index arrays, got %d", shape, len(shape), len(sp.Indices))
		}
	}
}

func TestSparsifyRowMajorOrder(t *testing.T) {
	x := NewTensor(2, 2)
	x.Set(3, 1, 0)
	x.Set(1, 0, 1)

	sp := Sparsify(x)
	if sp.NNZ() != 2 {
		t.Fatalf("expected 2 nonzeros, got %d", sp.NNZ())
	}
	if sp.Values[0] != 1 || sp.Values[1] != 3 {
		t.Errorf("values not in row-major order: %v", sp.Values)
	}
	if sp.Indices[0][0] != 0 || sp.Indices[1][0] != 1 || sp.Indices[0][1] != 1 || sp.Indices[1][1] != 0 {
		t.Errorf("unexpected indices: %v", sp.Indices)
	}
}

func TestSparsifyExactZeroOnly(t *testing.T) {
	x := Vector([]complex128{1e-300, 0, complex(0, -1e-320)})
	sp := Sparsify(x)
	if sp.NNZ() != 2 {
		t.Errorf("tiny values must be kept, got %d nonzeros", sp.NNZ())
	}
}
