package node

import (
	"sync"
	"sync/atomic"
)

// cell is a compute-once cache slot. The computed state is explicit so
// callers and tests can observe whether the value has been produced.
type cell[T any] struct {
	done atomic.Bool
	mu   sync.Mutex
	val  T
	err  error
}

// get returns the cached value, running compute on first use. Concurrent
// first callers block until the single computation finishes.
func (c *cell[T]) get(compute func() (T, error)) (T, error) {
	if c.done.Load() {
		return c.val, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done.Load() {
		c.val, c.err = compute()
		c.done.Store(true)
	}
	return c.val, c.err
}

func (c *cell[T]) computed() bool {
	return c.done.Load()
}
