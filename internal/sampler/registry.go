package sampler

import (
	"fmt"
	"sort"
)

type Registry struct {
	samplers map[string]func() Sampler
}

func NewRegistry() *Registry {
	r := &Registry{samplers: make(map[string]func() Sampler)}

	r.samplers["boltzmann"] = func() Sampler { return Boltzmann{} }
	r.samplers["wigner"] = func() Sampler { return GroundStateWigner{} }
	r.samplers["coherent_state_wigner"] = func() Sampler { return CoherentStateWigner{} }
	r.samplers["definite"] = func() Sampler { return Deterministic{} }

	return r
}

// Register adds or replaces a named sampler.
func (r *Registry) Register(name string, fn func() Sampler) {
	r.samplers[name] = fn
}

func (r *Registry) Get(name string) (Sampler, error) {
	fn, ok := r.samplers[name]
	if !ok {
		return nil, fmt.Errorf("unknown sampler: %s", name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.samplers))
	for name := range r.samplers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
