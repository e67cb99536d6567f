package physics

import (
	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/ingredient"
)

// Model owns the constants and the memoized operators of one worker. It is
// not safe for concurrent use; parallel drivers build one Model per worker.
type Model struct {
	constants *constants.Constants

	latticeHq        ingredient.OperatorCache[*dynamo.Tensor]
	couplingGradient ingredient.OperatorCache[*dynamo.SparseTensor]

	invalidateOnUpdate bool
	hooks              []func(*Model)
}

type Option func(*Model)

// WithInvalidateOnUpdate drops every cached operator whenever a constant is
// written after the model is ready.
func WithInvalidateOnUpdate() Option {
	return func(m *Model) { m.invalidateOnUpdate = true }
}

// WithUpdateHook registers fn to run after each constant write once the model
// is ready. Hooks may derive further constants; those writes do not re-trigger
// the hooks.
func WithUpdateHook(fn func(*Model)) Option {
	return func(m *Model) { m.hooks = append(m.hooks, fn) }
}

// NewModel takes ownership of c's update callback. A nil c starts empty.
func NewModel(c *constants.Constants, opts ...Option) *Model {
	if c == nil {
		c = constants.New(nil)
	}
	m := &Model{constants: c}
	for _, opt := range opts {
		opt(m)
	}
	c.SetUpdateFunc(m.onConstantsUpdate)
	return m
}

func (m *Model) Constants() *constants.Constants { return m.constants }

// InvalidateCaches forces every memoized operator to be rebuilt on next use.
func (m *Model) InvalidateCaches() {
	m.latticeHq.Invalidate()
	m.couplingGradient.Invalidate()
}

// CacheBuilds reports how many times each memoized operator has been built.
func (m *Model) CacheBuilds() map[string]int {
	return map[string]int{
		"h_q":       m.latticeHq.Builds(),
		"dh_qc_dzc": m.couplingGradient.Builds(),
	}
}

func (m *Model) onConstantsUpdate() {
	if m.invalidateOnUpdate {
		m.InvalidateCaches()
	}
	for _, fn := range m.hooks {
		fn(m)
	}
}

func (m *Model) latticeCache() *ingredient.OperatorCache[*dynamo.Tensor] { return &m.latticeHq }

func (m *Model) couplingGradientCache() *ingredient.OperatorCache[*dynamo.SparseTensor] {
	return &m.couplingGradient
}

// cacheOwner is implemented by owners that memoize operators. Ingredients
// called with any other owner build their operator on every call.
type cacheOwner interface {
	latticeCache() *ingredient.OperatorCache[*dynamo.Tensor]
	couplingGradientCache() *ingredient.OperatorCache[*dynamo.SparseTensor]
}

// modeParams reads the per-mode constants every classical ingredient needs.
type modeParams struct {
	n      int
	mass   []float64
	weight []float64
	freq   []float64
}

func readModeParams(c *constants.Constants, withFrequency bool) (modeParams, error) {
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return modeParams{}, err
	}
	mp := modeParams{n: n}
	if mp.mass, err = c.Floats(constants.ClassicalMass, n); err != nil {
		return modeParams{}, err
	}
	if mp.weight, err = c.Floats(constants.ClassicalWeight, n); err != nil {
		return modeParams{}, err
	}
	if withFrequency {
		if mp.freq, err = c.FloatsOr(constants.OscillatorFrequency, constants.ClassicalWeight, n); err != nil {
			return modeParams{}, err
		}
	}
	return mp, nil
}
