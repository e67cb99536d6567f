package hop

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/san-kum/qclab/internal/dynamo"
)

// HarmonicOscillator rescales modes of H = Σ ½(p²/m + m·ω²·q²).
type HarmonicOscillator struct {
	Frequency []float64
	Weight    []float64
}

func (h HarmonicOscillator) Coefficients(z, deltaZ []complex128, evDiff float64) (Quadratic, error) {
	if len(h.Frequency) != len(z) || len(h.Weight) != len(z) {
		return Quadratic{}, fmt.Errorf("%w: %d modes, %d frequencies, %d weights",
			dynamo.ErrDimensionMismatch, len(z), len(h.Frequency), len(h.Weight))
	}
	aTerms := make([]complex128, len(z))
	bTerms := make([]complex128, len(z))
	for j := range z {
		w, wt := h.Frequency[j], h.Weight[j]
		aConst := complex(0.25*(w*w/wt-wt), 0)
		bConst := complex(0.25*(w*w/wt+wt), 0)
		d, dc := deltaZ[j], cmplx.Conj(deltaZ[j])
		zj, zc := z[j], cmplx.Conj(z[j])
		aTerms[j] = 2*dc*d*bConst - aConst*(d*d+dc*dc)
		bTerms[j] = (zj*d-dc*zc)*aConst + (d*zc-dc*zj)*bConst
	}
	return Quadratic{
		A: real(cmplxs.Sum(aTerms)),
		B: real(2i * cmplxs.Sum(bTerms)),
		C: evDiff,
	}, nil
}

// FreeParticle rescales modes of H = Σ p²/(2m).
type FreeParticle struct {
	Weight []float64
}

func (f FreeParticle) Coefficients(z, deltaZ []complex128, evDiff float64) (Quadratic, error) {
	if len(f.Weight) != len(z) {
		return Quadratic{}, fmt.Errorf("%w: %d modes, %d weights", dynamo.ErrDimensionMismatch, len(z), len(f.Weight))
	}
	aTerms := make([]complex128, len(z))
	bTerms := make([]complex128, len(z))
	for j := range z {
		h := complex(f.Weight[j], 0)
		fj := 1i * (cmplx.Conj(deltaZ[j]) + deltaZ[j])
		gj := cmplx.Conj(z[j]) - z[j]
		aTerms[j] = (h / 4) * fj * fj
		bTerms[j] = (h / 2) * fj * gj
	}
	return Quadratic{
		A: real(cmplxs.Sum(aTerms)),
		B: -real(cmplxs.Sum(bTerms)),
		C: -evDiff,
	}, nil
}
