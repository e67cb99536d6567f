package physics

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/ingredient"
)

func coordinates(kw ingredient.Kwargs) (*dynamo.Tensor, int, error) {
	z, err := kw.Tensor("z")
	if err != nil {
		return nil, 0, err
	}
	batch, err := ingredient.ResolveCoordinateBatch(z, kw, "z")
	if err != nil {
		return nil, 0, err
	}
	return z, batch, nil
}

func checkModes(z *dynamo.Tensor, n int) error {
	if z.Rank() != 2 || z.Shape()[1] != n {
		return &dimensionError{what: "z", shape: z.Shape(), modes: n}
	}
	return nil
}

// HarmonicOscillatorHc returns Σ ½(p²/m + m·ω²·q²) per trajectory.
func HarmonicOscillatorHc(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	z, batch, err := coordinates(kw)
	if err != nil {
		return nil, err
	}
	mp, err := readModeParams(owner.Constants(), true)
	if err != nil {
		return nil, err
	}
	if err := checkModes(z, mp.n); err != nil {
		return nil, err
	}
	out := dynamo.NewTensor(batch)
	terms := make([]float64, mp.n)
	for b := 0; b < batch; b++ {
		q, p, err := ToReal(z.RowView(b), mp.mass, mp.weight)
		if err != nil {
			return nil, err
		}
		for j := range terms {
			m, w := mp.mass[j], mp.freq[j]
			terms[j] = 0.5 * (p[j]*p[j]/m + m*w*w*q[j]*q[j])
		}
		out.Set(complex(floats.Sum(terms), 0), b)
	}
	return out, nil
}

// FreeParticleHc returns Σ p²/(2m) per trajectory.
func FreeParticleHc(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	z, batch, err := coordinates(kw)
	if err != nil {
		return nil, err
	}
	mp, err := readModeParams(owner.Constants(), false)
	if err != nil {
		return nil, err
	}
	if err := checkModes(z, mp.n); err != nil {
		return nil, err
	}
	out := dynamo.NewTensor(batch)
	terms := make([]float64, mp.n)
	for b := 0; b < batch; b++ {
		_, p, err := ToReal(z.RowView(b), mp.mass, mp.weight)
		if err != nil {
			return nil, err
		}
		for j := range terms {
			terms[j] = p[j] * p[j] / (2 * mp.mass[j])
		}
		out.Set(complex(floats.Sum(terms), 0), b)
	}
	return out, nil
}

// HarmonicOscillatorDhcDzc returns ∂H/∂z* = b·z + a·z* with
// a = ½(ω²/h − h) and b = ½(ω²/h + h).
func HarmonicOscillatorDhcDzc(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	z, batch, err := coordinates(kw)
	if err != nil {
		return nil, err
	}
	mp, err := readModeParams(owner.Constants(), true)
	if err != nil {
		return nil, err
	}
	if err := checkModes(z, mp.n); err != nil {
		return nil, err
	}
	out := dynamo.NewTensor(z.Shape()...)
	for b := 0; b < batch; b++ {
		zRow, row := z.RowView(b), out.RowView(b)
		for j, v := range zRow {
			h, w := mp.weight[j], mp.freq[j]
			a := complex(0.5*(w*w/h-h), 0)
			bb := complex(0.5*(w*w/h+h), 0)
			row[j] = bb*v + a*cmplx.Conj(v)
		}
	}
	return out, nil
}

// FreeParticleDhcDzc returns ∂H/∂z* = −(h/2)(z* − z).
func FreeParticleDhcDzc(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, error) {
	z, batch, err := coordinates(kw)
	if err != nil {
		return nil, err
	}
	c := owner.Constants()
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return nil, err
	}
	weight, err := c.Floats(constants.ClassicalWeight, n)
	if err != nil {
		return nil, err
	}
	if err := checkModes(z, n); err != nil {
		return nil, err
	}
	out := dynamo.NewTensor(z.Shape()...)
	for b := 0; b < batch; b++ {
		zRow, row := z.RowView(b), out.RowView(b)
		for j, v := range zRow {
			row[j] = -complex(weight[j]/2, 0) * (cmplx.Conj(v) - v)
		}
	}
	return out, nil
}
