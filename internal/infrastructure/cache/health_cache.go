package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	appmarketplace "github.com/channelops/backend/internal/application/marketplace"
)

const healthSnapshotKey = "marketplace:health"

// HealthSnapshotCache caches the marketplace health fan-out result with a
// short TTL so repeated health requests do not hammer vendor endpoints.
type HealthSnapshotCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// NewHealthSnapshotCache creates a health cache with the given TTL.
// A non-positive TTL falls back to 30 seconds.
func NewHealthSnapshotCache(ttl time.Duration) *HealthSnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HealthSnapshotCache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

var _ appmarketplace.HealthCache = (*HealthSnapshotCache)(nil)

// Get returns the cached snapshot and whether it is still fresh
func (c *HealthSnapshotCache) Get() ([]appmarketplace.HealthReport, bool) {
	value, found := c.store.Get(healthSnapshotKey)
	if !found {
		return nil, false
	}
	reports, ok := value.([]appmarketplace.HealthReport)
	return reports, ok
}

// Set replaces the cached snapshot
func (c *HealthSnapshotCache) Set(reports []appmarketplace.HealthReport) {
	c.store.Set(healthSnapshotKey, reports, c.ttl)
}
