package provider

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedGeocoder remembers recent search results of the wrapped geocoder.
// Failed searches are not cached.
type CachedGeocoder struct {
	next  Geocoder
	cache *expirable.LRU[string, []Place]
}

// NewCachedGeocoder caches up to size queries for ttl.
func NewCachedGeocoder(next Geocoder, size int, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		cache: expirable.NewLRU[string, []Place](size, nil, ttl),
	}
}

// Search answers from the cache when possible. Queries differing only in
// case or surrounding space share an entry.
func (c *CachedGeocoder) Search(ctx context.Context, query string) ([]Place, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if places, ok := c.cache.Get(key); ok {
		return append([]Place(nil), places...), nil
	}

	places, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]Place(nil), places...))
	return places, nil
}

// Purge drops every cached result, e.g. after a place was saved.
func (c *CachedGeocoder) Purge() {
	c.cache.Purge()
}
