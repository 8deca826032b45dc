// ABOUTME: Thread-safe TTL cache remembering recently stored webhook deliveries
// ABOUTME: Lets ingestion acknowledge gateway redeliveries without inserting signals twice

package dedupe

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Defaults for the webhook redelivery window.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultMaxSize = 10000
)

// cacheEntry stores when a key was stored and its position in the eviction order.
type cacheEntry struct {
	storedAt time.Time
	element  *list.Element
}

// Cache remembers delivery keys for a fixed window. It is size limited;
// when full the oldest key is evicted first.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*cacheEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given window and capacity. Non-positive
// values fall back to DefaultTTL and DefaultMaxSize. A background goroutine
// sweeps expired keys until Close.
func New(ttl time.Duration, maxSize int) *Cache {
	c := newCache(ttl, maxSize, time.Now)
	go c.sweepLoop(time.Minute)
	return c
}

func newCache(ttl time.Duration, maxSize int, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
		done:    make(chan struct{}),
	}
}

// DeliveryKey identifies one webhook completion by its job, status and summary.
// The summary is hashed so large agent outputs are not retained.
func DeliveryKey(jobID, status, summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return jobID + "|" + status + "|" + hex.EncodeToString(sum[:])
}

// Seen reports whether key was remembered within the window.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[key]
	return ok && c.now().Sub(entry.storedAt) < c.ttl
}

// Remember records key, restarting its window if it is already present.
func (c *Cache) Remember(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.seen[key]; ok {
		entry.storedAt = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[key] = &cacheEntry{storedAt: now, element: c.order.PushBack(key)}
}

// Reserve records key unless it is already held within the window, and
// reports whether the caller now owns it. Check and insert happen under one
// lock, so of two concurrent callers with the same key exactly one wins.
func (c *Cache) Reserve(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.seen[key]; ok {
		if now.Sub(entry.storedAt) < c.ttl {
			return false
		}
		entry.storedAt = now
		c.order.MoveToBack(entry.element)
		return true
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[key] = &cacheEntry{storedAt: now, element: c.order.PushBack(key)}
	return true
}

// Forget drops key, releasing a reservation that did not lead to a store.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok {
		c.order.Remove(entry.element)
		delete(c.seen, key)
	}
}

// Len returns the number of keys held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

func (c *Cache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops expired keys. The order list is by storage time, so it stops
// at the first live key.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for e := c.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		entry := c.seen[key]
		if now.Sub(entry.storedAt) < c.ttl {
			return
		}
		next := e.Next()
		c.order.Remove(e)
		delete(c.seen, key)
		e = next
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
