package sampler

import (
	"math"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/physics"
)

// Boltzmann samples the classical thermal distribution of a harmonic
// oscillator: q ~ N(0, sqrt(kBT/(m·ω²))), p ~ N(0, sqrt(m·kBT)).
type Boltzmann struct{}

func (Boltzmann) Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error) {
	ps, err := readPhaseSpace(c)
	if err != nil {
		return nil, err
	}
	kBT, err := readKBT(c)
	if err != nil {
		return nil, err
	}
	g := zeroMean(ps.n)
	for j := 0; j < ps.n; j++ {
		m, w := ps.mass[j], ps.freq[j]
		g.sigmaQ[j] = math.Sqrt(kBT / (m * w * w))
		g.sigmaP[j] = math.Sqrt(m * kBT)
	}
	return sampleGaussian(seeds, ps, g)
}

// GroundStateWigner samples the thermal Wigner distribution of a harmonic
// oscillator. At kBT = 0 it is the ground-state Wigner function.
type GroundStateWigner struct{}

func (GroundStateWigner) Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error) {
	ps, err := readPhaseSpace(c)
	if err != nil {
		return nil, err
	}
	kBT, err := readKBT(c)
	if err != nil {
		return nil, err
	}
	return sampleGaussian(seeds, ps, wignerWidths(ps, kBT))
}

func zeroMean(n int) gaussian {
	return gaussian{
		muQ: make([]float64, n), sigmaQ: make([]float64, n),
		muP: make([]float64, n), sigmaP: make([]float64, n),
	}
}

func wignerWidths(ps phaseSpace, kBT float64) gaussian {
	g := zeroMean(ps.n)
	for j := 0; j < ps.n; j++ {
		m, w := ps.mass[j], ps.freq[j]
		t := 1.0
		if kBT > 0 {
			t = math.Tanh(w / (2 * kBT))
		}
		g.sigmaQ[j] = math.Sqrt(1 / (2 * w * m * t))
		g.sigmaP[j] = math.Sqrt(m * w / (2 * t))
	}
	return g
}

// CoherentStateWigner samples the Wigner function of the coherent state
// exp(α·b† − α*·b): ground-state widths with means sqrt(2/(m·ω))·Re α and
// sqrt(2/(m·ω))·Im α.
type CoherentStateWigner struct{}

func (CoherentStateWigner) Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error) {
	ps, err := readPhaseSpace(c)
	if err != nil {
		return nil, err
	}
	alpha, err := c.Complexes(constants.CoherentDisplacement, ps.n)
	if err != nil {
		return nil, err
	}
	g := wignerWidths(ps, 0)
	for j := 0; j < ps.n; j++ {
		scale := math.Sqrt(2 / (ps.mass[j] * ps.freq[j]))
		g.muQ[j] = scale * real(alpha[j])
		g.muP[j] = scale * imag(alpha[j])
	}
	return sampleGaussian(seeds, ps, g)
}

// Deterministic places every trajectory at init_position, init_momentum.
type Deterministic struct{}

func (Deterministic) Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error) {
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return nil, err
	}
	mass, err := c.Floats(constants.ClassicalMass, n)
	if err != nil {
		return nil, err
	}
	weight, err := c.Floats(constants.ClassicalWeight, n)
	if err != nil {
		return nil, err
	}
	q, err := c.Floats(constants.InitPosition, n)
	if err != nil {
		return nil, err
	}
	p, err := c.Floats(constants.InitMomentum, n)
	if err != nil {
		return nil, err
	}
	z, err := physics.ToComplex(q, p, mass, weight)
	if err != nil {
		return nil, err
	}
	single := dynamo.Vector(z)
	return dynamo.Tile(single, len(seeds)), nil
}
