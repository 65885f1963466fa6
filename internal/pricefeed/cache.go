package pricefeed

import (
	"context"
	"sync"
	"time"
)

// ListingCache holds the last fetched set of listings with an explicit TTL.
// It is passed by reference into whoever resolves prices; there is no
// package-level singleton.
type ListingCache struct {
	mu        sync.Mutex
	data      []Listing
	fetchedAt time.Time
	ttl       time.Duration
}

// NewListingCache creates a cache that considers data stale after ttl.
func NewListingCache(ttl time.Duration) *ListingCache {
	return &ListingCache{ttl: ttl}
}

// IsExpired reports whether the cached listings are stale or absent.
func (c *ListingCache) IsExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiredLocked()
}

func (c *ListingCache) expiredLocked() bool {
	return c.data == nil || time.Since(c.fetchedAt) > c.ttl
}

// Refresh returns the cached listings, fetching from the client first when
// the cache is expired. Concurrent callers serialize on the cache so the
// provider sees at most one listings request per expiry.
func (c *ListingCache) Refresh(ctx context.Context, client Client) ([]Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.expiredLocked() {
		return c.data, nil
	}

	listings, err := client.Listings(ctx)
	if err != nil {
		return nil, err
	}

	c.data = listings
	c.fetchedAt = time.Now()
	return listings, nil
}

// Invalidate drops the cached listings so the next Refresh hits the client.
func (c *ListingCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.fetchedAt = time.Time{}
}
