package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("analysis: series too short")

// Spectrum returns angular frequencies and amplitudes of the mean-removed
// series sampled every dt. The zero-frequency bin is included.
func Spectrum(series []float64, dt float64) (omega, amplitude []float64, err error) {
	n := len(series)
	if n < 4 {
		return nil, nil, ErrTooShort
	}
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-stat.Mean(series, nil), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)
	omega = make([]float64, len(coeff))
	amplitude = make([]float64, len(coeff))
	for k, c := range coeff {
		omega[k] = 2 * math.Pi * fft.Freq(k) / dt
		amplitude[k] = cmplx.Abs(c) / float64(n)
	}
	return omega, amplitude, nil
}

// DominantFrequency returns the angular frequency of the largest non-zero
// spectral peak. Its resolution is 2π/(len(series)·dt).
func DominantFrequency(series []float64, dt float64) (float64, error) {
	omega, amp, err := Spectrum(series, dt)
	if err != nil {
		return 0, err
	}
	k := floats.MaxIdx(amp[1:]) + 1
	return omega[k], nil
}

// Drift is (last − first)/|first|, or last − first when first is zero.
func Drift(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	first, last := series[0], series[len(series)-1]
	if first == 0 {
		return last - first
	}
	return (last - first) / math.Abs(first)
}
