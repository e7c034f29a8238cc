package geocode

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// CachedGeocoder memoises successful lookups per coordinate. Failures are not
// cached.
type CachedGeocoder struct {
	next  ReverseGeocoder
	cache *gocache.Cache
}

// NewCachedGeocoder wraps next with an in-memory cache. A ttl of zero keeps
// entries for the lifetime of the process.
func NewCachedGeocoder(next ReverseGeocoder, ttl time.Duration) *CachedGeocoder {
	cleanup := ttl * 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &CachedGeocoder{
		next:  next,
		cache: gocache.New(ttl, cleanup),
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	key := cacheKey(lat, lng)
	if v, found := c.cache.Get(key); found {
		log.Debug().Str("key", key).Msg("geocode cache hit")
		addr := *v.(*Address)
		return &addr, nil
	}

	addr, err := c.next.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	stored := *addr
	c.cache.SetDefault(key, &stored)
	return addr, nil
}

// Len returns the number of cached coordinates.
func (c *CachedGeocoder) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.7f,%.7f", lat, lng)
}
