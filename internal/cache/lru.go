// Package cache provides the bounded LRU session cache the engine keeps
// its live pairwise sessions in.
package cache

import (
	"container/list"
	"sync"

	"courier/internal/domain"
)

// MaxSessions bounds the number of cached sessions per engine.
const MaxSessions = 100

type entry struct {
	key     domain.SessionKey
	session *domain.Session
}

// LRU is a fixed-capacity map with strict least-recently-used eviction:
// map for O(1) lookup, intrusive list for O(1) touch and evict. The cache
// is safe for standalone use; the engine additionally serializes access.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[domain.SessionKey]*list.Element
}

// NewLRU returns an empty cache holding at most capacity sessions.
// A capacity below 1 falls back to MaxSessions.
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = MaxSessions
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[domain.SessionKey]*list.Element, capacity),
	}
}

// Get returns the session for key and marks it most recently used.
func (c *LRU) Get(key domain.SessionKey) (*domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).session, true
}

// Put inserts or replaces the session for key. Inserting a new key at
// capacity evicts the least-recently-used entry first.
func (c *LRU) Put(key domain.SessionKey, session *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).session = session
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	c.items[key] = c.order.PushFront(&entry{key: key, session: session})
}

// Touch marks key most recently used without mutating the session.
func (c *LRU) Touch(key domain.SessionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
	}
}

// Remove drops the session for key if present.
func (c *LRU) Remove(key domain.SessionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Clear drops every cached session.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[domain.SessionKey]*list.Element, c.capacity)
}

// Len reports the number of cached sessions.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU) Keys() []domain.SessionKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SessionKey, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}

// Compile-time assertion that LRU implements domain.SessionCache.
var _ domain.SessionCache = (*LRU)(nil)
