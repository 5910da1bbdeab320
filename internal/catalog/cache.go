package catalog

import (
	"sync"

	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Cached wraps a Lookup with one in-memory LRU cache per lookup kind.
type Cached struct {
	inner      domain.Lookup
	stations   *lruCache[domain.Key, domain.Station]
	variables  *lruCache[domain.Key, domain.Variable]
	timestamps *lruCache[domain.Key, domain.Timestamp]
	counter    *prometheus.CounterVec // labels: lookup={station,variable,timestamp}, result={hit,miss}
}

// NewCached creates a cache decorator around a lookup. counter may be nil.
func NewCached(inner domain.Lookup, maxEntries int, counter *prometheus.CounterVec) *Cached {
	return &Cached{
		inner:      inner,
		stations:   newLRUCache[domain.Key, domain.Station](maxEntries),
		variables:  newLRUCache[domain.Key, domain.Variable](maxEntries),
		timestamps: newLRUCache[domain.Key, domain.Timestamp](maxEntries),
		counter:    counter,
	}
}

func (c *Cached) Station(key domain.Key) (domain.Station, error) {
	return cachedLookup(c, "station", c.stations, key, c.inner.Station)
}

func (c *Cached) Variable(key domain.Key) (domain.Variable, error) {
	return cachedLookup(c, "variable", c.variables, key, c.inner.Variable)
}

func (c *Cached) Timestamp(key domain.Key) (domain.Timestamp, error) {
	return cachedLookup(c, "timestamp", c.timestamps, key, c.inner.Timestamp)
}

func cachedLookup[V any](c *Cached, kind string, cache *lruCache[domain.Key, V], key domain.Key, resolve func(domain.Key) (V, error)) (V, error) {
	if v, ok := cache.get(key); ok {
		c.observe(kind, "hit")
		return v, nil
	}
	c.observe(kind, "miss")
	v, err := resolve(key)
	if err != nil {
		return v, err
	}
	// Only successful lookups are cached so misses can be retried once the
	// catalog knows the key.
	cache.put(key, v)
	return v, nil
}

func (c *Cached) observe(kind, result string) {
	if c.counter != nil {
		c.counter.WithLabelValues(kind, result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
