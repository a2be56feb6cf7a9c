package search

// Cacher memoizes a pure single-argument function. It never evicts entries,
// so it suits short-lived processes only.
//
// A Cacher is not safe for concurrent use.
type Cacher[T comparable] struct {
	calculation func(T) T
	values      map[T]T
}

// NewCacher returns a Cacher wrapping calculation, which must always return
// the same output for the same input.
func NewCacher[T comparable](calculation func(T) T) *Cacher[T] {
	return &Cacher[T]{
		calculation: calculation,
		values:      make(map[T]T),
	}
}

// Value returns the cached result for input, invoking the calculation only
// the first time input is seen.
func (c *Cacher[T]) Value(input T) T {
	if v, ok := c.values[input]; ok {
		return v
	}
	result := c.calculation(input)
	c.values[input] = result
	return result
}

// Len returns the number of cached entries.
func (c *Cacher[T]) Len() int {
	return len(c.values)
}
