// Package constants holds the named model constants read by every ingredient.
//
// Writes after [Constants.MarkReady] notify a single update callback so that
// dependent state (cached operators, derived constants) can be refreshed.
package constants

import (
	"fmt"
	"sort"

	"github.com/san-kum/qclab/internal/dynamo"
)

// Well-known constant names shared by the bundled ingredients and samplers.
const (
	NumClassicalCoordinates = "num_classical_coordinates"
	NumQuantumStates        = "num_quantum_states"
	ClassicalMass           = "classical_coordinate_mass"
	ClassicalWeight         = "classical_coordinate_weight"
	OscillatorFrequency     = "harmonic_oscillator_frequency"
	KBT                     = "kBT"
	CoherentDisplacement    = "coherent_state_displacement"
	InitPosition            = "init_position"
	InitMomentum            = "init_momentum"
)

type Constants struct {
	values   map[string]any
	onUpdate func()
	ready    bool
	updating bool
}

// New returns an empty set. onUpdate may be nil.
func New(onUpdate func()) *Constants {
	return &Constants{values: make(map[string]any), onUpdate: onUpdate}
}

// SetUpdateFunc replaces the update callback.
func (c *Constants) SetUpdateFunc(fn func()) { c.onUpdate = fn }

// MarkReady ends initialization; subsequent writes trigger the callback.
func (c *Constants) MarkReady() { c.ready = true }

func (c *Constants) Ready() bool { return c.ready }

// Set stores value under name. Once ready, the callback runs exactly once per
// write; writes made from inside the callback do not trigger it again.
func (c *Constants) Set(name string, value any) {
	c.values[name] = value
	if !c.ready || c.updating || c.onUpdate == nil {
		return
	}
	c.updating = true
	defer func() { c.updating = false }()
	c.onUpdate()
}

// Get returns the stored value, or def when name is unset.
func (c *Constants) Get(name string, def any) any {
	if v, ok := c.values[name]; ok {
		return v
	}
	return def
}

func (c *Constants) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

func (c *Constants) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", dynamo.ErrMissingRequiredConstant, name)
}

func wrongType(name string, v any, want string) error {
	return fmt.Errorf("constant %s: have %T, want %s: %w", name, v, want, dynamo.ErrUnsupportedValueType)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Float reads a required scalar.
func (c *Constants) Float(name string) (float64, error) {
	v, ok := c.values[name]
	if !ok {
		return 0, missing(name)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, wrongType(name, v, "float64")
	}
	return f, nil
}

// FloatOr reads an optional scalar.
func (c *Constants) FloatOr(name string, def float64) (float64, error) {
	if !c.Has(name) {
		return def, nil
	}
	return c.Float(name)
}

func (c *Constants) Int(name string) (int, error) {
	v, ok := c.values[name]
	if !ok {
		return 0, missing(name)
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, wrongType(name, v, "int")
}

func (c *Constants) Bool(name string, def bool) (bool, error) {
	v, ok := c.values[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(name, v, "bool")
	}
	return b, nil
}

// Floats reads a required per-mode array of length n. A scalar is broadcast
// to every mode.
func (c *Constants) Floats(name string, n int) ([]float64, error) {
	v, ok := c.values[name]
	if !ok {
		return nil, missing(name)
	}
	if f, ok := toFloat(v); ok {
		out := make([]float64, n)
		for i := range out {
			out[i] = f
		}
		return out, nil
	}
	arr, ok := v.([]float64)
	if !ok {
		return nil, wrongType(name, v, "[]float64")
	}
	if len(arr) != n {
		return nil, fmt.Errorf("constant %s: length %d, want %d: %w", name, len(arr), n, dynamo.ErrDimensionMismatch)
	}
	return append([]float64(nil), arr...), nil
}

// FloatsOr reads an optional per-mode array, falling back to another constant.
func (c *Constants) FloatsOr(name, fallback string, n int) ([]float64, error) {
	if c.Has(name) {
		return c.Floats(name, n)
	}
	return c.Floats(fallback, n)
}

// Complexes reads a required per-mode complex array of length n. Real arrays
// and scalars are accepted.
func (c *Constants) Complexes(name string, n int) ([]complex128, error) {
	v, ok := c.values[name]
	if !ok {
		return nil, missing(name)
	}
	out := make([]complex128, n)
	switch x := v.(type) {
	case complex128:
		for i := range out {
			out[i] = x
		}
		return out, nil
	case []complex128:
		if len(x) != n {
			return nil, fmt.Errorf("constant %s: length %d, want %d: %w", name, len(x), n, dynamo.ErrDimensionMismatch)
		}
		copy(out, x)
		return out, nil
	}
	re, err := c.Floats(name, n)
	if err != nil {
		return nil, err
	}
	for i, f := range re {
		out[i] = complex(f, 0)
	}
	return out, nil
}

// Matrix reads a required rows x cols real matrix stored as [][]float64.
func (c *Constants) Matrix(name string, rows, cols int) ([][]float64, error) {
	v, ok := c.values[name]
	if !ok {
		return nil, missing(name)
	}
	m, ok := v.([][]float64)
	if !ok {
		return nil, wrongType(name, v, "[][]float64")
	}
	if len(m) != rows {
		return nil, fmt.Errorf("constant %s: %d rows, want %d: %w", name, len(m), rows, dynamo.ErrDimensionMismatch)
	}
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("constant %s: row %d has %d columns, want %d: %w", name, i, len(row), cols, dynamo.ErrDimensionMismatch)
		}
	}
	return m, nil
}
