// Package sampler draws initial classical coordinates for an ensemble of
// trajectories.
//
// Every sample is drawn from a generator seeded with its own trajectory seed
// and nothing else, so a seed yields the same coordinates whether it is
// sampled alone or at any position of a larger batch.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/physics"
)

// stream selects the PCG sequence used for classical sampling.
const stream = 0x71636c6162

// Sampler returns a (len(seeds), modes) tensor of complex coordinates.
type Sampler interface {
	Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error)
}

// SamplerFunc adapts a plain function to Sampler.
type SamplerFunc func(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error)

func (f SamplerFunc) Sample(seeds []int64, c *constants.Constants) (*dynamo.Tensor, error) {
	return f(seeds, c)
}

func newSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), stream)
}

// gaussian describes independent normal distributions per mode.
type gaussian struct {
	muQ, sigmaQ []float64
	muP, sigmaP []float64
}

// draw fills q for every mode, then p for every mode, from one source.
func (g gaussian) draw(src rand.Source) (q, p []float64) {
	n := len(g.sigmaQ)
	q = make([]float64, n)
	p = make([]float64, n)
	for j := range q {
		q[j] = distuv.Normal{Mu: g.muQ[j], Sigma: g.sigmaQ[j], Src: src}.Rand()
	}
	for j := range p {
		p[j] = distuv.Normal{Mu: g.muP[j], Sigma: g.sigmaP[j], Src: src}.Rand()
	}
	return q, p
}

// phaseSpace holds the per-mode constants shared by all samplers.
type phaseSpace struct {
	n      int
	mass   []float64
	weight []float64
	freq   []float64
}

func readPhaseSpace(c *constants.Constants) (phaseSpace, error) {
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return phaseSpace{}, err
	}
	ps := phaseSpace{n: n}
	if ps.mass, err = c.Floats(constants.ClassicalMass, n); err != nil {
		return phaseSpace{}, err
	}
	if ps.weight, err = c.Floats(constants.ClassicalWeight, n); err != nil {
		return phaseSpace{}, err
	}
	if ps.freq, err = c.FloatsOr(constants.OscillatorFrequency, constants.ClassicalWeight, n); err != nil {
		return phaseSpace{}, err
	}
	for j := 0; j < n; j++ {
		if ps.mass[j] <= 0 || ps.freq[j] <= 0 {
			return phaseSpace{}, fmt.Errorf("%w: mode %d has mass %g and frequency %g",
				dynamo.ErrParameterBounds, j, ps.mass[j], ps.freq[j])
		}
	}
	return ps, nil
}

func readKBT(c *constants.Constants) (float64, error) {
	kBT, err := c.Float(constants.KBT)
	if err != nil {
		return 0, err
	}
	if kBT < 0 {
		return 0, fmt.Errorf("%w: kBT %g", dynamo.ErrParameterBounds, kBT)
	}
	return kBT, nil
}

func sampleGaussian(seeds []int64, ps phaseSpace, g gaussian) (*dynamo.Tensor, error) {
	out := dynamo.NewTensor(len(seeds), ps.n)
	for s, seed := range seeds {
		q, p := g.draw(newSource(seed))
		z, err := physics.ToComplex(q, p, ps.mass, ps.weight)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", seed, err)
		}
		copy(out.RowView(s), z)
	}
	return out, nil
}
