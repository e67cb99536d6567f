// Package hop computes the classical-coordinate rescaling that conserves
// energy when a surface-hopping trajectory changes quantum state.
//
// A [Rescaler] reduces (z, deltaZ, evDiff) to a real quadratic
// A·γ² − B·γ + C = 0 in the rescaling amplitude γ; the shift applied to the
// classical coordinate is −i·γ·deltaZ. When the discriminant is negative the
// classical coordinates cannot supply the energy and no hop happens. That is
// a normal outcome, reported as false rather than as an error.
package hop

import (
	"fmt"
	"math"

	"github.com/san-kum/qclab/internal/dynamo"
)

// Quadratic holds the coefficients of A·γ² − B·γ + C = 0.
type Quadratic struct {
	A, B, C float64
}

func (q Quadratic) Discriminant() float64 {
	return q.B*q.B - 4*q.A*q.C
}

// SolveQuadratic returns the smaller-magnitude root, or false when no real
// root exists. A zero leading coefficient yields γ = 0.
func SolveQuadratic(q Quadratic) (float64, bool) {
	disc := q.Discriminant()
	if disc < 0 || math.IsNaN(disc) {
		return 0, false
	}
	var gamma float64
	if q.B < 0 {
		gamma = q.B + math.Sqrt(disc)
	} else {
		gamma = q.B - math.Sqrt(disc)
	}
	if q.A == 0 {
		return 0, true
	}
	return gamma / (2 * q.A), true
}

// Rescaler builds the model-specific quadratic for a rescaling direction.
type Rescaler interface {
	Coefficients(z, deltaZ []complex128, evDiff float64) (Quadratic, error)
}

// Shift returns −i·γ·deltaZ.
func Shift(gamma float64, deltaZ []complex128) []complex128 {
	out := make([]complex128, len(deltaZ))
	for i, d := range deltaZ {
		out[i] = -1i * complex(gamma, 0) * d
	}
	return out
}

// Hop returns the shift that makes the classical coordinates supply evDiff
// (final minus initial quantum energy), and whether the hop can happen.
// A failed hop returns a zero shift.
func Hop(r Rescaler, z, deltaZ []complex128, evDiff float64) ([]complex128, bool, error) {
	if len(z) != len(deltaZ) {
		return nil, false, fmt.Errorf("%w: z has %d modes, delta_z has %d", dynamo.ErrDimensionMismatch, len(z), len(deltaZ))
	}
	q, err := r.Coefficients(z, deltaZ, evDiff)
	if err != nil {
		return nil, false, err
	}
	gamma, ok := SolveQuadratic(q)
	if !ok {
		return make([]complex128, len(z)), false, nil
	}
	return Shift(gamma, deltaZ), true, nil
}

// Batch applies Hop row by row to (batch, modes) tensors.
func Batch(r Rescaler, z, deltaZ *dynamo.Tensor, evDiff []float64) (*dynamo.Tensor, []bool, error) {
	if !z.SameShape(deltaZ) || z.Rank() != 2 {
		return nil, nil, fmt.Errorf("%w: z %v, delta_z %v", dynamo.ErrDimensionMismatch, z.Shape(), deltaZ.Shape())
	}
	if len(evDiff) != z.Len() {
		return nil, nil, &dynamo.BatchError{Key: "ev_diff", Want: z.Len(), Got: len(evDiff)}
	}
	shifts := dynamo.NewTensor(z.Shape()...)
	hopped := make([]bool, z.Len())
	for n := 0; n < z.Len(); n++ {
		shift, ok, err := Hop(r, z.RowView(n), deltaZ.RowView(n), evDiff[n])
		if err != nil {
			return nil, nil, fmt.Errorf("trajectory %d: %w", n, err)
		}
		copy(shifts.RowView(n), shift)
		hopped[n] = ok
	}
	return shifts, hopped, nil
}
