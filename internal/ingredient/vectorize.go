package ingredient

import (
	"fmt"
	"sort"

	"github.com/san-kum/qclab/internal/dynamo"
)

// arrayLen reports whether v is indexed per trajectory and its leading length.
func arrayLen(v any) (int, bool) {
	switch x := v.(type) {
	case *dynamo.Tensor:
		return x.Len(), true
	case []float64:
		return len(x), true
	case []complex128:
		return len(x), true
	case []int64:
		return len(x), true
	}
	return 0, false
}

func arrayAt(v any, n int) any {
	switch x := v.(type) {
	case *dynamo.Tensor:
		return x.Row(n)
	case []float64:
		return x[n]
	case []complex128:
		return x[n]
	case []int64:
		return x[n]
	}
	return v
}

// Vectorize turns a per-trajectory function into a batched one. Array-valued
// kwargs (tensors and numeric slices) are indexed at position n of their
// leading axis for trajectory n; everything else passes through unchanged.
// The per-trajectory results are stacked along a new leading axis.
func Vectorize(f Func) Func {
	return func(owner Owner, params Parameters, kw Kwargs) (*dynamo.Tensor, error) {
		batchSize, err := ResolveBatchSize(params, kw)
		if err != nil {
			return nil, err
		}

		keys := make([]string, 0, len(kw))
		for key := range kw {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var arrays []string
		for _, key := range keys {
			if t, ok := kw[key].(*dynamo.Tensor); ok && t.Rank() == 0 {
				return nil, &dynamo.BatchError{Key: key, Want: batchSize, Got: 0}
			}
			n, ok := arrayLen(kw[key])
			if !ok {
				continue
			}
			if n != batchSize {
				return nil, &dynamo.BatchError{Key: key, Want: batchSize, Got: n}
			}
			arrays = append(arrays, key)
		}

		results := make([]*dynamo.Tensor, batchSize)
		for n := 0; n < batchSize; n++ {
			kwn := make(Kwargs, len(kw))
			for key, v := range kw {
				kwn[key] = v
			}
			for _, key := range arrays {
				kwn[key] = arrayAt(kw[key], n)
			}
			out, err := f(owner, params, kwn)
			if err != nil {
				return nil, fmt.Errorf("trajectory %d: %w", n, err)
			}
			if out == nil {
				return nil, fmt.Errorf("trajectory %d: %w: nil result", n, dynamo.ErrInvalidBatchShape)
			}
			results[n] = out
		}
		return dynamo.Stack(results)
	}
}
