package ingredient

import (
	"errors"
	"testing"

	"github.com/san-kum/qclab/internal/dynamo"
)

func TestOperatorCacheReusesSameBatchSize(t *testing.T) {
	var cache OperatorCache[*dynamo.Tensor]
	build := func(n int) (*dynamo.Tensor, error) {
		return dynamo.NewTensor(n, 2, 2), nil
	}

	first, err := cache.Get(4, build)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cache.Get(4, build)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second || !first.Equal(second) {
		t.Error("expected the cached operator on the second call")
	}
	if cache.Builds() != 1 {
		t.Errorf("expected 1 build, got %d", cache.Builds())
	}

	third, err := cache.Get(6, build)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if third.Len() != 6 {
		t.Errorf("expected operator shaped for batch 6, got %v", third.Shape())
	}
	if cache.Builds() != 2 {
		t.Errorf("expected rebuild on batch size change, got %d builds", cache.Builds())
	}
}

// The cache is keyed by batch size only: a constant change at the same batch
// size is served stale until Invalidate is called.
func TestOperatorCacheStalenessWindow(t *testing.T) {
	var cache OperatorCache[float64]
	value := 1.0
	build := func(int) (float64, error) { return value, nil }

	got, _ := cache.Get(3, build)
	if got != 1 {
		t.Fatalf("got %v", got)
	}

	value = 2.0
	got, _ = cache.Get(3, build)
	if got != 1 {
		t.Errorf("known staleness window: expected stale value 1, got %v", got)
	}

	cache.Invalidate()
	got, _ = cache.Get(3, build)
	if got != 2 {
		t.Errorf("expected rebuilt value 2 after Invalidate, got %v", got)
	}
}

func TestOperatorCacheBuildFailureKeepsState(t *testing.T) {
	var cache OperatorCache[int]
	if _, err := cache.Get(2, func(n int) (int, error) { return n, nil }); err != nil {
		t.Fatalf("get: %v", err)
	}

	boom := errors.New("boom")
	if _, err := cache.Get(5, func(int) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}

	v, n, ok := cache.Cached()
	if !ok || v != 2 || n != 2 {
		t.Errorf("failed build must not clobber cache, got (%v, %d, %v)", v, n, ok)
	}
}
