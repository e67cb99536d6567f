package physics

import (
	"fmt"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/hop"
	"github.com/san-kum/qclab/internal/ingredient"
)

// HopFunc computes the classical shift for a single trajectory from the
// kwargs z, delta_z (1-D tensors) and ev_diff (final minus initial quantum
// energy). When hopped is false the shift is zero.
type HopFunc func(owner ingredient.Owner, params ingredient.Parameters, kw ingredient.Kwargs) (shift *dynamo.Tensor, hopped bool, err error)

func hopArgs(kw ingredient.Kwargs) (z, deltaZ *dynamo.Tensor, evDiff float64, err error) {
	if z, err = kw.Tensor("z"); err != nil {
		return nil, nil, 0, err
	}
	if deltaZ, err = kw.Tensor("delta_z"); err != nil {
		return nil, nil, 0, err
	}
	if evDiff, err = kw.Float("ev_diff"); err != nil {
		return nil, nil, 0, err
	}
	if z.Rank() != 1 || !z.SameShape(deltaZ) {
		return nil, nil, 0, fmt.Errorf("%w: z %v, delta_z %v", dynamo.ErrDimensionMismatch, z.Shape(), deltaZ.Shape())
	}
	return z, deltaZ, evDiff, nil
}

func runHop(r hop.Rescaler, kw ingredient.Kwargs) (*dynamo.Tensor, bool, error) {
	z, deltaZ, evDiff, err := hopArgs(kw)
	if err != nil {
		return nil, false, err
	}
	shift, ok, err := hop.Hop(r, z.Data(), deltaZ.Data(), evDiff)
	if err != nil {
		return nil, false, err
	}
	return dynamo.Vector(shift), ok, nil
}

// HarmonicOscillatorRescaler reads the oscillator frequencies and weights.
func HarmonicOscillatorRescaler(c *constants.Constants) (hop.Rescaler, error) {
	mp, err := readModeParams(c, true)
	if err != nil {
		return nil, err
	}
	return hop.HarmonicOscillator{Frequency: mp.freq, Weight: mp.weight}, nil
}

func FreeParticleRescaler(c *constants.Constants) (hop.Rescaler, error) {
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return nil, err
	}
	weight, err := c.Floats(constants.ClassicalWeight, n)
	if err != nil {
		return nil, err
	}
	return hop.FreeParticle{Weight: weight}, nil
}

func HarmonicOscillatorHop(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, bool, error) {
	r, err := HarmonicOscillatorRescaler(owner.Constants())
	if err != nil {
		return nil, false, err
	}
	return runHop(r, kw)
}

func FreeParticleHop(owner ingredient.Owner, _ ingredient.Parameters, kw ingredient.Kwargs) (*dynamo.Tensor, bool, error) {
	r, err := FreeParticleRescaler(owner.Constants())
	if err != nil {
		return nil, false, err
	}
	return runHop(r, kw)
}
