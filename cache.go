package form

import "sync"

// instanceCache associates engine state with the object it belongs to,
// keyed by identity. Go offers no weak associative structure the engine
// could rely on, so ownership is explicit: instances live until released
// through the matching Release function.
type instanceCache[T any] struct {
	mu    sync.Mutex
	items map[any]T
}

func newInstanceCache[T any]() *instanceCache[T] {
	return &instanceCache[T]{items: make(map[any]T)}
}

// getOrCreate returns the instance stored for key, creating it on first
// access. create runs under the cache lock, so creation is once-only. The
// second return value reports whether this call created the instance.
func (c *instanceCache[T]) getOrCreate(key any, create func() (T, error)) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[key]; ok {
		return item, false, nil
	}
	item, err := create()
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.items[key] = item
	return item, true, nil
}

// release removes and returns the instance stored for key.
func (c *instanceCache[T]) release(key any) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if ok {
		delete(c.items, key)
	}
	return item, ok
}
