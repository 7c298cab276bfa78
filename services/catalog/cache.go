package catalog

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const defaultListCacheTTL = 30 * time.Second

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_list_cache_hits_total"})
	cacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_list_cache_miss_total"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMiss)
}

type listing struct {
	products []*Product
	loadedAt time.Time
}

// ListCache holds product listings keyed by the active-only flag. Any catalog
// write drops every entry; stock changes made by purchases show up once the
// TTL expires.
type ListCache struct {
	mu    sync.RWMutex
	items map[bool]*listing
	ttl   time.Duration
	group singleflight.Group
}

// NewListCache returns a cache with the given TTL. A non-positive TTL disables
// caching.
func NewListCache(ttl time.Duration) *ListCache {
	return &ListCache{
		items: make(map[bool]*listing),
		ttl:   ttl,
	}
}

func (c *ListCache) get(activeOnly bool) ([]*Product, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[activeOnly]
	if !ok || time.Since(v.loadedAt) > c.ttl {
		return nil, false
	}
	return v.products, true
}

func (c *ListCache) set(activeOnly bool, products []*Product) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[activeOnly] = &listing{products: products, loadedAt: time.Now()}
}

// Load returns the cached listing or calls load once for all concurrent
// callers asking for the same key.
func (c *ListCache) Load(activeOnly bool, load func() ([]*Product, error)) ([]*Product, error) {
	if products, ok := c.get(activeOnly); ok {
		cacheHits.Inc()
		return products, nil
	}
	cacheMiss.Inc()

	v, err, _ := c.group.Do(strconv.FormatBool(activeOnly), func() (interface{}, error) {
		products, err := load()
		if err != nil {
			return nil, err
		}
		c.set(activeOnly, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Product), nil
}

func (c *ListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[bool]*listing)
}
