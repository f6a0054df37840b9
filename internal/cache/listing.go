// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/bulkctl/bulkctl/internal/domain"
)

const DefaultListingTTL = 30 * time.Second

// ListingCache keeps recently fetched listing pages and the last server-reported
// total per filter. Invalidate drops everything so the next read goes to the server.
type ListingCache struct {
	cache *ttlcache.Cache[string, any]
	ttl   time.Duration
	// Note: ttlcache is thread-safe, no additional mutex needed
}

func NewListingCache(ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	cache := ttlcache.New[string, any](
		ttlcache.WithCapacity[string, any](500),
		ttlcache.WithTTL[string, any](ttl),
	)

	go cache.Start()

	return &ListingCache{cache: cache, ttl: ttl}
}

func pageKey(filter domain.Filter, page, pageSize int) string {
	return fmt.Sprintf("page:%s|p=%d|n=%d", filter.Key(), page, pageSize)
}

func totalKey(filter domain.Filter) string {
	return "total:" + filter.Key()
}

// GetPage returns a cached page, or false when it is missing or expired
func (l *ListingCache) GetPage(filter domain.Filter, page, pageSize int) (*domain.Page, bool) {
	item := l.cache.Get(pageKey(filter, page, pageSize))
	if item == nil {
		return nil, false
	}
	p, ok := item.Value().(domain.Page)
	if !ok {
		return nil, false
	}
	return &p, true
}

// SetPage stores a page and records its total as the filter's latest total
func (l *ListingCache) SetPage(filter domain.Filter, page *domain.Page) {
	if page == nil {
		return
	}
	stored := *page
	stored.Items = append([]domain.Item(nil), page.Items...)

	l.cache.Set(pageKey(filter, page.Page, page.PageSize), stored, ttlcache.DefaultTTL)
	l.cache.Set(totalKey(filter), page.Total, ttlcache.DefaultTTL)
}

// LastTotal returns the most recent server-reported total for filter
func (l *ListingCache) LastTotal(filter domain.Filter) (int, bool) {
	item := l.cache.Get(totalKey(filter))
	if item == nil {
		return 0, false
	}
	total, ok := item.Value().(int)
	return total, ok
}

// Invalidate marks all listing data stale
func (l *ListingCache) Invalidate() {
	l.cache.DeleteAll()
}

// Stop ends the background expiry loop
func (l *ListingCache) Stop() {
	l.cache.Stop()
}
