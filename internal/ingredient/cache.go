package ingredient

// OperatorCache memoizes an operator that depends only on the batch size.
// The cached value is reused while requests keep the same batch size and is
// rebuilt otherwise. Changes to the constants the builder reads are not
// detected; call Invalidate when they change.
type OperatorCache[T any] struct {
	batchSize int
	value     T
	valid     bool
	builds    int
}

// Get returns the cached value for batchSize, building it when missing or
// built for a different batch size. A failed build leaves the cache as is.
func (c *OperatorCache[T]) Get(batchSize int, build func(batchSize int) (T, error)) (T, error) {
	if c.valid && c.batchSize == batchSize {
		return c.value, nil
	}
	v, err := build(batchSize)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.batchSize = batchSize
	c.valid = true
	c.builds++
	return v, nil
}

func (c *OperatorCache[T]) Invalidate() {
	var zero T
	c.value = zero
	c.valid = false
}

// Cached returns the stored value and the batch size it was built for.
func (c *OperatorCache[T]) Cached() (T, int, bool) {
	return c.value, c.batchSize, c.valid
}

// Builds counts successful rebuilds.
func (c *OperatorCache[T]) Builds() int { return c.builds }
