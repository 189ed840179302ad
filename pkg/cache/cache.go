// Package cache provides a thread-safe LRU cache for compiled Metapath
// expressions.
//
// The cache is used by the evaluator when the WithCaching option is enabled.
// It avoids re-parsing and re-building the same expression text on every
// call, which matters when one query is applied to many documents.
//
// Entries are spread over shards selected by a SipHash of the expression
// text, so concurrent lookups of different expressions rarely contend on
// the same lock. Each shard evicts its own least recently used entry.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile("//item[@id = 'x']", func() (*ast.Expression, error) {
//	    return ast.Compile("//item[@id = 'x']")
//	})
package cache

import (
	"container/list"
	"sync"

	"github.com/dchest/siphash"
	"golang.org/x/sync/singleflight"

	"github.com/sandrolain/gometapath/pkg/ast"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

const maxShards = 16

// shard keys; fixed so that shard selection is stable across runs.
const (
	k0 = 0x6d657461_70617468
	k1 = 0x63616368_65736864
)

// entry is a cache entry stored in a shard's doubly-linked list.
type entry struct {
	key  string
	expr *ast.Expression
}

type shard struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// Cache is a sharded LRU cache for compiled expressions.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	capacity int
	shards   []*shard
	group    singleflight.Group
}

// New creates a cache holding up to capacity expressions.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	n := maxShards
	if capacity < n {
		n = capacity
	}
	c := &Cache{capacity: capacity, shards: make([]*shard, n)}
	for i := range c.shards {
		per := capacity / n
		if i < capacity%n {
			per++
		}
		c.shards[i] = &shard{
			capacity: per,
			ll:       list.New(),
			items:    make(map[string]*list.Element, per),
		}
	}
	return c
}

func (c *Cache) shard(key string) *shard {
	h := siphash.Hash(k0, k1, []byte(key))
	return c.shards[h%uint64(len(c.shards))]
}

// Get returns the expression cached for key and marks it most recently
// used.
func (c *Cache) Get(key string) (*ast.Expression, bool) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces an expression. If the shard is full its least
// recently used entry is evicted first.
func (c *Cache) Set(key string, expr *ast.Expression) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		el.Value.(*entry).expr = expr
		s.ll.MoveToFront(el)
		return
	}
	if s.ll.Len() >= s.capacity {
		s.evictLocked()
	}
	s.items[key] = s.ll.PushFront(&entry{key: key, expr: expr})
}

// GetOrCompile returns the expression for key, calling compile to build it
// on a miss. Concurrent misses on the same key share one compile call.
// Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*ast.Expression, error)) (*ast.Expression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if expr, ok := c.Get(key); ok {
			return expr, nil
		}
		expr, err := compile()
		if err != nil {
			return nil, err
		}
		c.Set(key, expr)
		return expr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ast.Expression), nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		s.ll.Remove(el)
		delete(s.items, key)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.ll.Init()
		s.items = make(map[string]*list.Element, s.capacity)
		s.mu.Unlock()
	}
}

// evictLocked removes the least recently used entry of the shard.
// Must be called with s.mu held.
func (s *shard) evictLocked() {
	el := s.ll.Back()
	if el == nil {
		return
	}
	s.ll.Remove(el)
	delete(s.items, el.Value.(*entry).key)
}
