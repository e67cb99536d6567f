package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/qclab/internal/dynamo"
)

func checkModeParams(n int, mass, weight []float64) error {
	if len(mass) != n || len(weight) != n {
		return fmt.Errorf("%w: %d modes, %d masses, %d weights", dynamo.ErrDimensionMismatch, n, len(mass), len(weight))
	}
	for j := 0; j < n; j++ {
		if mass[j] <= 0 || weight[j] <= 0 {
			return fmt.Errorf("%w: mode %d has mass %g and weight %g", dynamo.ErrParameterBounds, j, mass[j], weight[j])
		}
	}
	return nil
}

// ToReal converts complex coordinates to positions and momenta:
//
//	q = (z + z*)/sqrt(2·m·h)
//	p = Re(i·sqrt(m·h/2)·(z* − z))
func ToReal(z []complex128, mass, weight []float64) (q, p []float64, err error) {
	if err := checkModeParams(len(z), mass, weight); err != nil {
		return nil, nil, err
	}
	q = make([]float64, len(z))
	p = make([]float64, len(z))
	for j, v := range z {
		mh := mass[j] * weight[j]
		q[j] = 2 * real(v) / math.Sqrt(2*mh)
		p[j] = 2 * imag(v) * math.Sqrt(mh/2)
	}
	return q, p, nil
}

// ToComplex is the inverse of ToReal: z = sqrt(m·h/2)·q + i·p/sqrt(2·m·h).
func ToComplex(q, p []float64, mass, weight []float64) ([]complex128, error) {
	if len(p) != len(q) {
		return nil, fmt.Errorf("%w: %d positions, %d momenta", dynamo.ErrDimensionMismatch, len(q), len(p))
	}
	if err := checkModeParams(len(q), mass, weight); err != nil {
		return nil, err
	}
	z := make([]complex128, len(q))
	for j := range q {
		mh := mass[j] * weight[j]
		z[j] = complex(math.Sqrt(mh/2)*q[j], p[j]/math.Sqrt(2*mh))
	}
	return z, nil
}

// ToRealBatch applies ToReal to every row of a (batch, modes) tensor and
// returns real-valued (batch, modes) tensors.
func ToRealBatch(z *dynamo.Tensor, mass, weight []float64) (q, p *dynamo.Tensor, err error) {
	if z.Rank() != 2 {
		return nil, nil, fmt.Errorf("%w: z must be (batch, modes), got %v", dynamo.ErrDimensionMismatch, z.Shape())
	}
	q = dynamo.NewTensor(z.Shape()...)
	p = dynamo.NewTensor(z.Shape()...)
	for n := 0; n < z.Len(); n++ {
		qn, pn, err := ToReal(z.RowView(n), mass, weight)
		if err != nil {
			return nil, nil, fmt.Errorf("trajectory %d: %w", n, err)
		}
		qRow, pRow := q.RowView(n), p.RowView(n)
		for j := range qn {
			qRow[j] = complex(qn[j], 0)
			pRow[j] = complex(pn[j], 0)
		}
	}
	return q, p, nil
}

// ToComplexBatch applies ToComplex row by row.
func ToComplexBatch(q, p *dynamo.Tensor, mass, weight []float64) (*dynamo.Tensor, error) {
	if q.Rank() != 2 || !q.SameShape(p) {
		return nil, fmt.Errorf("%w: q %v, p %v", dynamo.ErrDimensionMismatch, q.Shape(), p.Shape())
	}
	z := dynamo.NewTensor(q.Shape()...)
	qr, pr := q.Real(), p.Real()
	modes := q.Shape()[1]
	for n := 0; n < q.Len(); n++ {
		zn, err := ToComplex(qr[n*modes:(n+1)*modes], pr[n*modes:(n+1)*modes], mass, weight)
		if err != nil {
			return nil, fmt.Errorf("trajectory %d: %w", n, err)
		}
		copy(z.RowView(n), zn)
	}
	return z, nil
}
