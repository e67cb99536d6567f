package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/qclab/internal/dynamo"
)

func TestCanonicalRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		q, p   []float64
		mass   []float64
		weight []float64
	}{
		{"unit", []float64{1, -2}, []float64{0.5, 3}, []float64{1, 1}, []float64{1, 1}},
		{"heavy", []float64{0.1}, []float64{-4}, []float64{1836}, []float64{0.25}},
		{"mixed", []float64{0, 3, -1}, []float64{2, 0, 1e-3}, []float64{0.5, 2, 7}, []float64{3, 0.1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := ToComplex(tt.q, tt.p, tt.mass, tt.weight)
			if err != nil {
				t.Fatalf("ToComplex: %v", err)
			}
			q, p, err := ToReal(z, tt.mass, tt.weight)
			if err != nil {
				t.Fatalf("ToReal: %v", err)
			}
			for j := range q {
				if math.Abs(q[j]-tt.q[j]) > 1e-12*math.Max(1, math.Abs(tt.q[j])) {
					t.Errorf("q[%d] = %v, want %v", j, q[j], tt.q[j])
				}
				if math.Abs(p[j]-tt.p[j]) > 1e-12*math.Max(1, math.Abs(tt.p[j])) {
					t.Errorf("p[%d] = %v, want %v", j, p[j], tt.p[j])
				}
			}
		})
	}
}

func TestToComplexKnownValue(t *testing.T) {
	z, err := ToComplex([]float64{2}, []float64{4}, []float64{2}, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	// sqrt(2/2)*2 + i*4/sqrt(4)
	if z[0] != complex(2, 2) {
		t.Errorf("z = %v, want (2+2i)", z[0])
	}
}

func TestCanonicalRejectsBadParameters(t *testing.T) {
	if _, _, err := ToReal([]complex128{1}, []float64{0}, []float64{1}); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("zero mass: got %v", err)
	}
	if _, err := ToComplex([]float64{1}, []float64{1}, []float64{1}, []float64{-1}); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("negative weight: got %v", err)
	}
	if _, _, err := ToReal([]complex128{1, 2}, []float64{1}, []float64{1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("short mass: got %v", err)
	}
	if _, err := ToComplex([]float64{1, 2}, []float64{1}, []float64{1, 1}, []float64{1, 1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("short momenta: got %v", err)
	}
}

func TestBatchTransforms(t *testing.T) {
	mass, weight := []float64{1, 2}, []float64{0.5, 1.5}
	z, _ := dynamo.FromSlice([]complex128{1 + 1i, -0.5 + 2i, 0.25 - 1i, 3}, 2, 2)

	q, p, err := ToRealBatch(z, mass, weight)
	if err != nil {
		t.Fatalf("ToRealBatch: %v", err)
	}
	back, err := ToComplexBatch(q, p, mass, weight)
	if err != nil {
		t.Fatalf("ToComplexBatch: %v", err)
	}
	if !back.EqualApprox(z, 1e-12) {
		t.Errorf("round trip = %v, want %v", back, z)
	}

	if _, _, err := ToRealBatch(dynamo.NewTensor(4), mass, weight); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("rank-1 input: got %v", err)
	}
}
