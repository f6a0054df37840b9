// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package mock

import (
	"fmt"
	"math/rand"

	"github.com/bulkctl/bulkctl/internal/domain"
)

var (
	statusOptions = []domain.ItemStatus{
		domain.ItemStatusActive,
		domain.ItemStatusPaused,
		domain.ItemStatusFailed,
		domain.ItemStatusCompleted,
	}

	sourceOptions = []domain.ItemSource{
		domain.ItemSourceManual,
		domain.ItemSourceScheduled,
		domain.ItemSourceAPI,
	}

	names = []string{
		"nightly backup",
		"hourly sync",
		"weekly report",
		"cache warmup",
		"index rebuild",
		"log rotation",
		"invoice export",
		"thumbnail render",
		"search reindex",
		"metrics rollup",
	}
)

// GenerateItems returns n items with ids item-0001... Status, source and name are
// drawn from a seeded source so the same seed always yields the same listing.
func GenerateItems(n int, seed int64) []domain.Item {
	rng := rand.New(rand.NewSource(seed))
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:     fmt.Sprintf("item-%04d", i+1),
			Name:   fmt.Sprintf("%s #%d", names[rng.Intn(len(names))], i+1),
			Status: statusOptions[rng.Intn(len(statusOptions))],
			Source: sourceOptions[rng.Intn(len(sourceOptions))],
		}
	}
	return items
}

// UniformItems returns n items that all share one status and source, so every
// filter either matches all of them or none
func UniformItems(n int, status domain.ItemStatus, source domain.ItemSource) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:     fmt.Sprintf("item-%04d", i+1),
			Name:   fmt.Sprintf("item %d", i+1),
			Status: status,
			Source: source,
		}
	}
	return items
}
