// Package aggregate accumulates per-trajectory outputs into normalized
// ensemble averages and merges the partial results of independent workers.
//
// Every stored value is a weighted mean: the sum of the contributions of the
// trajectories recorded so far divided by NormFactor. Two accumulators merge
// by weighting each value with its own NormFactor, so merging is commutative
// and associative up to rounding.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/qclab/internal/dynamo"
)

// Reserved tree keys.
const (
	SeedKey       = "seed"
	NormFactorKey = "norm_factor"
)

var ErrReservedKey = errors.New("aggregate: reserved output key")

// Data is owned by a single worker until it is merged.
type Data struct {
	Seeds      []int64
	NormFactor float64
	Values     map[string]any
}

func New(seeds ...int64) *Data {
	return &Data{Seeds: append([]int64(nil), seeds...), Values: make(map[string]any)}
}

func (d *Data) AddSeeds(seeds ...int64) {
	d.Seeds = append(d.Seeds, seeds...)
}

// Keys returns the output keys in sorted order.
func (d *Data) Keys() []string {
	keys := make([]string, 0, len(d.Values))
	for k := range d.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tensor returns the value stored under key when it is a tensor.
func (d *Data) Tensor(key string) (*dynamo.Tensor, bool) {
	t, ok := d.Values[key].(*dynamo.Tensor)
	return t, ok
}

func (d *Data) Clone() *Data {
	return &Data{
		Seeds:      append([]int64(nil), d.Seeds...),
		NormFactor: d.NormFactor,
		Values:     cloneMap(d.Values),
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case *dynamo.Tensor:
		return x.Clone()
	case map[string]any:
		return cloneMap(x)
	case []float64:
		return append([]float64(nil), x...)
	case []complex128:
		return append([]complex128(nil), x...)
	case []int64:
		return append([]int64(nil), x...)
	case []byte:
		return append([]byte(nil), x...)
	}
	return v
}

// normalization returns the NormFactor to use for a contribution with the
// given weight. Every contribution needs a non-zero weight; the first one
// fixes NormFactor.
func (d *Data) normalization(weight float64) (float64, error) {
	if weight == 0 {
		return 0, fmt.Errorf("%w: contribution has weight 0", dynamo.ErrZeroNormalization)
	}
	if d.NormFactor != 0 {
		return d.NormFactor, nil
	}
	return weight, nil
}

// checkOutputs validates that every output carries a trajectory axis of the
// same length and no output uses a reserved key.
func checkOutputs(outputs map[string]*dynamo.Tensor) error {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := -1
	for _, key := range keys {
		if key == SeedKey || key == NormFactorKey {
			return fmt.Errorf("%w: %s", ErrReservedKey, key)
		}
		t := outputs[key]
		if t == nil || t.Rank() == 0 {
			return &dynamo.BatchError{Key: key, Want: max(batch, 0), Got: 0}
		}
		if batch < 0 {
			batch = t.Len()
		} else if t.Len() != batch {
			return &dynamo.BatchError{Key: key, Want: batch, Got: t.Len()}
		}
	}
	return nil
}

// Record stores Σ_trajectories(output)/NormFactor under each key, replacing
// any previous value. The first call fixes NormFactor to weight; later
// weights are ignored. Nothing is modified when an error is returned.
func (d *Data) Record(outputs map[string]*dynamo.Tensor, weight float64) error {
	if err := checkOutputs(outputs); err != nil {
		return err
	}
	norm, err := d.normalization(weight)
	if err != nil {
		return err
	}
	for key, t := range outputs {
		if prev, ok := d.Values[key]; ok {
			pt, isTensor := prev.(*dynamo.Tensor)
			if !isTensor || !sameInner(pt.Shape(), t.Shape()) {
				return fmt.Errorf("%w: output %s has shape %v, stored value is %v",
					dynamo.ErrDimensionMismatch, key, t.Shape()[1:], describe(prev))
			}
		}
	}

	d.NormFactor = norm
	if d.Values == nil {
		d.Values = make(map[string]any)
	}
	for key, t := range outputs {
		d.Values[key] = batchMean(t, norm)
	}
	return nil
}

// RecordStep stores Σ_trajectories(output)/NormFactor in row step of a
// (numSteps, ...) time series under each key.
func (d *Data) RecordStep(step, numSteps int, outputs map[string]*dynamo.Tensor, weight float64) error {
	if step < 0 || step >= numSteps {
		return fmt.Errorf("%w: step %d of %d", dynamo.ErrParameterBounds, step, numSteps)
	}
	if err := checkOutputs(outputs); err != nil {
		return err
	}
	norm, err := d.normalization(weight)
	if err != nil {
		return err
	}
	for key, t := range outputs {
		prev, ok := d.Values[key]
		if !ok {
			continue
		}
		want := append([]int{numSteps}, t.Shape()[1:]...)
		if pt, isTensor := prev.(*dynamo.Tensor); !isTensor || !equalShape(pt.Shape(), want) {
			return fmt.Errorf("%w: output %s needs series %v, stored value is %v",
				dynamo.ErrDimensionMismatch, key, want, describe(prev))
		}
	}

	d.NormFactor = norm
	if d.Values == nil {
		d.Values = make(map[string]any)
	}
	for key, t := range outputs {
		series, ok := d.Values[key].(*dynamo.Tensor)
		if !ok {
			series = dynamo.NewTensor(append([]int{numSteps}, t.Shape()[1:]...)...)
			d.Values[key] = series
		}
		row := batchMean(t, norm)
		copy(series.RowView(step), row.Data())
	}
	return nil
}

// batchMean sums over the trajectory axis and divides by norm.
func batchMean(t *dynamo.Tensor, norm float64) *dynamo.Tensor {
	out := t.SumAxis0()
	data := out.Data()
	for i, v := range data {
		data[i] = complex(real(v)/norm, imag(v)/norm)
	}
	return out
}

func sameInner(stored, batched []int) bool {
	return equalShape(stored, batched[1:])
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func describe(v any) string {
	if t, ok := v.(*dynamo.Tensor); ok {
		return fmt.Sprint(t.Shape())
	}
	return fmt.Sprintf("%T", v)
}
