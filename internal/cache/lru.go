package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most capacity entries, evicting the least recently used
// one first. Entries older than ttl read as missing.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recent
	now      func() time.Time
}

type item[T any] struct {
	key     string
	data    T
	expires time.Time
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[T]{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	it := el.Value.(*item[T])
	if c.now().After(it.expires) {
		c.unlink(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return it.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := &item[T]{key: key, data: data, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = it
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(it)
	for c.order.Len() > c.capacity {
		c.unlink(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
	}
}

func (c *LRUCache[T]) DeleteFunc(match func(key string, data T) bool) int {
	return c.removeWhere(func(it *item[T]) bool { return match(it.key, it.data) })
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	now := c.now()
	return c.removeWhere(func(it *item[T]) bool { return now.After(it.expires) })
}

func (c *LRUCache[T]) removeWhere(match func(*item[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if match(el.Value.(*item[T])) {
			c.unlink(el)
			n++
		}
		el = next
	}
	return n
}

func (c *LRUCache[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*item[T]).key)
	c.order.Remove(el)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
