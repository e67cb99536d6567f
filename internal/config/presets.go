package config

import "sort"

var Presets = map[string]map[string]*Config{
	"harmonic": {
		"thermal": {
			Model: "harmonic", Sampler: "boltzmann", NumTrajs: 200, BatchSize: 50, Workers: 4,
			Dt: 0.01, Tmax: 10.0, DtCollectN: 10,
			Constants: ConstantsConfig{NumModes: 4, Mass: []float64{1}, Weight: []float64{1}, KBT: 1.0},
		},
		"quantum": {
			Model: "harmonic", Sampler: "wigner", NumTrajs: 200, BatchSize: 50, Workers: 4,
			Dt: 0.01, Tmax: 10.0, DtCollectN: 10,
			Constants: ConstantsConfig{
				NumModes: 4, Mass: []float64{1}, Weight: []float64{1}, KBT: 0.1,
				Frequency: []float64{0.5, 1.0, 1.5, 2.0},
			},
		},
		"coherent": {
			Model: "harmonic", Sampler: "coherent_state_wigner", NumTrajs: 100, BatchSize: 25, Workers: 2,
			Dt: 0.01, Tmax: 20.0, DtCollectN: 5,
			Constants: ConstantsConfig{
				NumModes: 1, Mass: []float64{1}, Weight: []float64{1},
				DisplacementRe: []float64{2}, DisplacementIm: []float64{0},
			},
		},
	},
	"free_particle": {
		"ballistic": {
			Model: "free_particle", Sampler: "definite", NumTrajs: 10, BatchSize: 10, Workers: 1,
			Dt: 0.01, Tmax: 5.0, DtCollectN: 10,
			Constants: ConstantsConfig{
				NumModes: 2, Mass: []float64{1, 2}, Weight: []float64{1},
				InitPosition: []float64{0}, InitMomentum: []float64{1, -1},
			},
		},
		"thermal": {
			Model: "free_particle", Sampler: "boltzmann", NumTrajs: 200, BatchSize: 40, Workers: 4,
			Dt: 0.01, Tmax: 5.0, DtCollectN: 10,
			Constants: ConstantsConfig{NumModes: 3, Mass: []float64{1}, Weight: []float64{1}, KBT: 0.5},
		},
	},
}

// GetPreset returns a copy of the named preset with store settings from
// DefaultConfig, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := *cfg
	if out.Store == (StoreConfig{}) {
		out.Store = DefaultConfig().Store
	}
	return &out
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
