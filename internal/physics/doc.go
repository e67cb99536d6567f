// Package physics provides the model ingredients consumed by the trajectory
// driver: classical Hamiltonians and their gradients, quantum Hamiltonians,
// quantum-classical couplings and hop functions.
//
// Every ingredient has the [ingredient.Func] signature and reads its
// constants through the owning [Model]:
//
//   - [HarmonicOscillatorHc], [HarmonicOscillatorDhcDzc]
//   - [FreeParticleHc], [FreeParticleDhcDzc]
//   - [TwoLevelSystemHq], [NearestNeighborLatticeHq]
//   - [DiagonalLinearHqc], [DiagonalLinearDhqcDzc]
//   - [HarmonicOscillatorHop], [FreeParticleHop]
//
// # Complex Coordinates
//
// Classical coordinates are carried as z = sqrt(m·h/2)·q + i·p/sqrt(2·m·h)
// where m is the mass and h the weight of each mode. [ToReal] and
// [ToComplex] convert between the two forms.
//
// # Caching
//
// Operators that depend only on the batch size are memoized on the [Model]
// and rebuilt when the batch size changes. Constant changes are not tracked;
// call [Model.InvalidateCaches] or build the model with
// [WithInvalidateOnUpdate].
package physics
