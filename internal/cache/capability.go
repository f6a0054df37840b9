// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultCapabilityTTL = 10 * time.Minute

	bulkUnsupportedKey = "capability:bulk-unsupported"
)

// CapabilityCache remembers for a while that the server lacks bulk jobs, so later
// runs go straight to local execution instead of probing again.
type CapabilityCache struct {
	cache *ttlcache.Cache[string, bool]
}

func NewCapabilityCache(ttl time.Duration) *CapabilityCache {
	if ttl <= 0 {
		ttl = DefaultCapabilityTTL
	}
	return &CapabilityCache{
		cache: ttlcache.New[string, bool](
			ttlcache.WithTTL[string, bool](ttl),
			ttlcache.WithDisableTouchOnHit[string, bool](),
		),
	}
}

func (c *CapabilityCache) BulkUnsupported() bool {
	item := c.cache.Get(bulkUnsupportedKey)
	return item != nil && item.Value()
}

func (c *CapabilityCache) MarkBulkUnsupported() {
	c.cache.Set(bulkUnsupportedKey, true, ttlcache.DefaultTTL)
}

// Reset forgets what was learned about the server
func (c *CapabilityCache) Reset() {
	c.cache.DeleteAll()
}
