package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/hop"
	"github.com/san-kum/qclab/internal/ingredient"
)

// Classical bundles the classical ingredients of one model family.
type Classical struct {
	Name     string
	Energy   ingredient.Func
	Gradient ingredient.Func
	Hop      HopFunc
	Rescaler func(*constants.Constants) (hop.Rescaler, error)
}

var classicalFamilies = map[string]Classical{
	"harmonic": {
		Name:     "harmonic",
		Energy:   HarmonicOscillatorHc,
		Gradient: HarmonicOscillatorDhcDzc,
		Hop:      HarmonicOscillatorHop,
		Rescaler: HarmonicOscillatorRescaler,
	},
	"free_particle": {
		Name:     "free_particle",
		Energy:   FreeParticleHc,
		Gradient: FreeParticleDhcDzc,
		Hop:      FreeParticleHop,
		Rescaler: FreeParticleRescaler,
	},
}

func LookupClassical(name string) (Classical, error) {
	c, ok := classicalFamilies[name]
	if !ok {
		return Classical{}, fmt.Errorf("unknown model: %s", name)
	}
	return c, nil
}

func ClassicalNames() []string {
	names := make([]string, 0, len(classicalFamilies))
	for name := range classicalFamilies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
