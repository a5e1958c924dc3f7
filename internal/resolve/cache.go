package resolve

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dusk-indust/funcctx/internal/source"
)

// DefaultCacheSize bounds each of the two cache tables.
const DefaultCacheSize = 4096

// Cache memoizes parsed definitions and resolver lookups. Parses are keyed by
// path and content hash, lookups by index generation and calling scope, so a
// content change never serves a stale entry. A Cache is safe for concurrent
// use and may be shared by resolvers over the same index.
type Cache struct {
	defs    *lru.Cache[string, []*source.Definition]
	lookups *lru.Cache[string, *source.Definition]
}

// NewCache returns a cache holding up to size entries per table.
func NewCache(size int) (*Cache, error) {
	defs, err := lru.New[string, []*source.Definition](size)
	if err != nil {
		return nil, fmt.Errorf("definition cache: %w", err)
	}
	lookups, err := lru.New[string, *source.Definition](size)
	if err != nil {
		return nil, fmt.Errorf("lookup cache: %w", err)
	}
	return &Cache{defs: defs, lookups: lookups}, nil
}

func (c *Cache) definitions(key string) ([]*source.Definition, bool) {
	return c.defs.Get(key)
}

func (c *Cache) storeDefinitions(key string, defs []*source.Definition) {
	c.defs.Add(key, defs)
}

// lookup returns a memoized resolution. A nil definition with ok set records
// a call that did not resolve.
func (c *Cache) lookup(key string) (*source.Definition, bool) {
	return c.lookups.Get(key)
}

func (c *Cache) storeLookup(key string, d *source.Definition) {
	c.lookups.Add(key, d)
}

// Len returns the number of cached parses and lookups.
func (c *Cache) Len() (defs, lookups int) {
	return c.defs.Len(), c.lookups.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.defs.Purge()
	c.lookups.Purge()
}
