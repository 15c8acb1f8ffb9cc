package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AuctionLoader is anything that can produce the auction dataset.
type AuctionLoader interface {
	Fetch(ctx context.Context) (*AuctionFetchResult, error)
}

// cachedAuction is a fetched dataset with its expiry.
type cachedAuction struct {
	result    *AuctionFetchResult
	expiresAt time.Time
}

func (c *cachedAuction) isExpired(now time.Time) bool {
	return !now.Before(c.expiresAt)
}

// AuctionCache keeps the last fetched auction dataset in memory for a TTL so
// that repeated API requests do not hit the exchange every time. A zero TTL
// disables caching.
type AuctionCache struct {
	loader AuctionLoader
	ttl    time.Duration
	now    func() time.Time

	mutex sync.RWMutex
	entry *cachedAuction
	hits  int64
	miss  int64
}

// NewAuctionCache creates a new in-memory auction cache
func NewAuctionCache(loader AuctionLoader, ttl time.Duration) *AuctionCache {
	return &AuctionCache{loader: loader, ttl: ttl, now: time.Now}
}

// Fetch returns the cached dataset while it is fresh and reloads it otherwise.
// Results served from the on-disk fallback are not kept, so the next call
// retries the network.
func (c *AuctionCache) Fetch(ctx context.Context) (*AuctionFetchResult, error) {
	if result, ok := c.get(); ok {
		return result, nil
	}

	result, err := c.loader.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 && result.Origin == AuctionOriginNetwork {
		c.mutex.Lock()
		c.entry = &cachedAuction{result: result, expiresAt: c.now().Add(c.ttl)}
		c.mutex.Unlock()
		logrus.WithFields(logrus.Fields{"rows": result.Rows, "ttl": c.ttl}).Debug("Cached auction dataset")
	}
	return result, nil
}

func (c *AuctionCache) get() (*AuctionFetchResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.entry == nil || c.entry.isExpired(c.now()) {
		c.entry = nil
		c.miss++
		return nil, false
	}
	c.hits++
	return c.entry.result, true
}

// Invalidate drops the cached dataset.
func (c *AuctionCache) Invalidate() {
	c.mutex.Lock()
	c.entry = nil
	c.mutex.Unlock()
}

// Stats returns cache hit and miss counts.
func (c *AuctionCache) Stats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return map[string]interface{}{
		"cached": c.entry != nil,
		"hits":   c.hits,
		"misses": c.miss,
		"ttl":    c.ttl.String(),
	}
}
