// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/domain"
)

func TestListingCache_SetAndGet(t *testing.T) {
	c := NewListingCache(time.Minute)
	defer c.Stop()

	filter := domain.Filter{Status: domain.ItemStatusActive}
	page := &domain.Page{
		Items:    []domain.Item{{ID: "1"}, {ID: "2"}},
		Total:    530,
		Page:     1,
		PageSize: 25,
	}
	c.SetPage(filter, page)

	got, ok := c.GetPage(filter, 1, 25)
	require.True(t, ok)
	assert.Equal(t, page.IDs(), got.IDs())

	_, ok = c.GetPage(filter, 2, 25)
	assert.False(t, ok)
	_, ok = c.GetPage(domain.Filter{}, 1, 25)
	assert.False(t, ok, "pages are keyed by filter")

	total, ok := c.LastTotal(filter)
	require.True(t, ok)
	assert.Equal(t, 530, total)

	// stored pages are copies
	page.Items[0].ID = "mutated"
	got, _ = c.GetPage(filter, 1, 25)
	assert.Equal(t, "1", got.Items[0].ID)
}

func TestListingCache_Invalidate(t *testing.T) {
	c := NewListingCache(time.Minute)
	defer c.Stop()

	filter := domain.Filter{Search: "nightly"}
	c.SetPage(filter, &domain.Page{Items: []domain.Item{{ID: "1"}}, Total: 1, Page: 1, PageSize: 25})

	c.Invalidate()

	_, ok := c.GetPage(filter, 1, 25)
	assert.False(t, ok)
	_, ok = c.LastTotal(filter)
	assert.False(t, ok)
}

func TestListingCache_Expiry(t *testing.T) {
	c := NewListingCache(20 * time.Millisecond)
	defer c.Stop()

	filter := domain.Filter{}
	c.SetPage(filter, &domain.Page{Total: 3, Page: 1, PageSize: 25})

	_, ok := c.LastTotal(filter)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.LastTotal(filter)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCapabilityCache(t *testing.T) {
	c := NewCapabilityCache(30 * time.Millisecond)
	assert.False(t, c.BulkUnsupported())

	c.MarkBulkUnsupported()
	assert.True(t, c.BulkUnsupported())

	assert.Eventually(t, func() bool { return !c.BulkUnsupported() }, time.Second, 5*time.Millisecond,
		"the memo expires so the server is probed again")

	c.MarkBulkUnsupported()
	c.Reset()
	assert.False(t, c.BulkUnsupported())
}
