// Package analysis extracts characteristic quantities from ensemble-averaged
// time series.
//
//   - [Spectrum]: one-sided amplitude spectrum of a uniformly sampled series
//   - [DominantFrequency]: angular frequency of the strongest non-zero mode
//   - [Drift]: relative change of a conserved quantity
//
// # Oscillation Frequencies
//
// For a harmonic ensemble the averaged position oscillates at the mode
// frequencies:
//
//	omega, err := analysis.DominantFrequency(q, dtOut)
package analysis
