package analysis

// Cache is a stage's private scratch space for one run. The analyzer resets
// it before every PreAnalyze.
type Cache struct {
	values map[string]any
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{values: make(map[string]any)}
}

// Reset drops every value.
func (c *Cache) Reset() {
	c.values = make(map[string]any)
}

// Set stores v under key.
func (c *Cache) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// Get returns the value under key.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is set.
func (c *Cache) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Int returns the integer under key, or zero.
func (c *Cache) Int(key string) int {
	n, _ := c.values[key].(int)
	return n
}

// Inc adds delta to the integer under key and returns the new value.
func (c *Cache) Inc(key string, delta int) int {
	n := c.Int(key) + delta
	c.Set(key, n)
	return n
}

// Len is the number of keys held.
func (c *Cache) Len() int { return len(c.values) }

// CacheValue returns the value under key as a T, or T's zero value.
func CacheValue[T any](c *Cache, key string) T {
	v, _ := c.values[key].(T)
	return v
}
