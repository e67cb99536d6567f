package aggregate

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/qclab/internal/dynamo"
)

// Merge returns the accumulator holding the contributions of both a and b.
// Values present in both are averaged with weights a.NormFactor and
// b.NormFactor; values present in only one side are copied. Seeds are
// concatenated, a's first. Neither input is modified.
func Merge(a, b *Data) (*Data, error) {
	norm := a.NormFactor + b.NormFactor
	if norm == 0 {
		return nil, fmt.Errorf("%w: combined norm_factor is 0", dynamo.ErrZeroNormalization)
	}
	w := weights{a: a.NormFactor, b: b.NormFactor, total: norm}
	values, err := mergeMaps(a.Values, b.Values, w, "")
	if err != nil {
		return nil, err
	}
	seeds := make([]int64, 0, len(a.Seeds)+len(b.Seeds))
	seeds = append(append(seeds, a.Seeds...), b.Seeds...)
	return &Data{Seeds: seeds, NormFactor: norm, Values: values}, nil
}

// MergeAll folds Merge over parts from left to right.
func MergeAll(parts ...*Data) (*Data, error) {
	if len(parts) == 0 {
		return New(), nil
	}
	acc := parts[0].Clone()
	for i, p := range parts[1:] {
		merged, err := Merge(acc, p)
		if err != nil {
			return nil, fmt.Errorf("merge part %d: %w", i+1, err)
		}
		acc = merged
	}
	return acc, nil
}

type weights struct {
	a, b, total float64
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func mergeMaps(a, b map[string]any, w weights, prefix string) (map[string]any, error) {
	out := cloneMap(a)
	for key, bv := range b {
		av, ok := a[key]
		if !ok {
			out[key] = cloneValue(bv)
			continue
		}
		merged, err := mergeValue(av, bv, w, joinPath(prefix, key))
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

func mergeValue(av, bv any, w weights, path string) (any, error) {
	switch x := av.(type) {
	case *dynamo.Tensor:
		y, ok := bv.(*dynamo.Tensor)
		if !ok {
			break
		}
		if !x.SameShape(y) {
			return nil, fmt.Errorf("%w: %s has shapes %v and %v", dynamo.ErrDimensionMismatch, path, x.Shape(), y.Shape())
		}
		return weightedTensor(x, y, w), nil
	case map[string]any:
		y, ok := bv.(map[string]any)
		if !ok {
			break
		}
		return mergeMaps(x, y, w, path)
	case []float64:
		y, ok := bv.([]float64)
		if !ok {
			break
		}
		if len(x) != len(y) {
			return nil, fmt.Errorf("%w: %s has lengths %d and %d", dynamo.ErrDimensionMismatch, path, len(x), len(y))
		}
		out := make([]float64, len(x))
		for i := range x {
			out[i] = weightedReal(x[i], y[i], w)
		}
		return out, nil
	}

	if xr, ok := realScalar(av); ok {
		if yr, ok := realScalar(bv); ok {
			return weightedReal(xr, yr, w), nil
		}
	}
	if xc, ok := complexScalar(av); ok {
		if yc, ok := complexScalar(bv); ok {
			return complex(weightedReal(real(xc), real(yc), w), weightedReal(imag(xc), imag(yc), w)), nil
		}
	}
	return nil, fmt.Errorf("cannot merge %s (%T with %T): %w", path, av, bv, dynamo.ErrUnsupportedValueType)
}

func weightedReal(x, y float64, w weights) float64 {
	return stat.Mean([]float64{x, y}, []float64{w.a, w.b})
}

func weightedTensor(x, y *dynamo.Tensor, w weights) *dynamo.Tensor {
	out := x.Scale(complex(w.a, 0))
	data := out.Data()
	cmplxs.AddScaled(data, complex(w.b, 0), y.Data())
	for i, v := range data {
		data[i] = complex(real(v)/w.total, imag(v)/w.total)
	}
	return out
}

func realScalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func complexScalar(v any) (complex128, bool) {
	if c, ok := v.(complex128); ok {
		return c, true
	}
	if r, ok := realScalar(v); ok {
		return complex(r, 0), true
	}
	return 0, false
}

// SharedSeeds returns, sorted, the seeds recorded by more than one part.
// Parts sharing a seed hold the same trajectory, so merging them counts it
// twice.
func SharedSeeds(parts ...*Data) []int64 {
	owner := make(map[int64]int)
	shared := make(map[int64]bool)
	for i, p := range parts {
		for _, s := range p.Seeds {
			if j, ok := owner[s]; ok && j != i {
				shared[s] = true
				continue
			}
			owner[s] = i
		}
	}
	out := make([]int64, 0, len(shared))
	for s := range shared {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
