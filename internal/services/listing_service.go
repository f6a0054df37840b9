// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// ListingService serves listing pages through the listing cache. Bulk runs
// invalidate that cache, so the first read after a run goes to the server.
type ListingService struct {
	lister   domain.ItemLister
	cache    domain.ListingCache
	pageSize int
	logger   *slog.Logger
}

// NewListingService creates a new instance of ListingService
func NewListingService(lister domain.ItemLister, cache domain.ListingCache, pageSize int, logger *slog.Logger) *ListingService {
	if pageSize < 1 {
		pageSize = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		lister:   lister,
		cache:    cache,
		pageSize: pageSize,
		logger:   logger,
	}
}

func (s *ListingService) PageSize() int {
	return s.pageSize
}

// Page returns one page of the filtered listing, from cache when fresh
func (s *ListingService) Page(ctx context.Context, filter domain.Filter, page int) (*domain.Page, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	if cached, ok := s.cache.GetPage(filter, page, s.pageSize); ok {
		s.logger.Debug("listing cache hit", "filter", filter.Key(), "page", page)
		return cached, nil
	}
	return s.Refresh(ctx, filter, page)
}

// Refresh fetches a page from the server and stores it
func (s *ListingService) Refresh(ctx context.Context, filter domain.Filter, page int) (*domain.Page, error) {
	p, err := s.lister.ListItems(ctx, filter, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	s.cache.SetPage(filter, p)
	return p, nil
}

// LastTotal is the most recent server-reported total for filter. It may be stale.
func (s *ListingService) LastTotal(filter domain.Filter) (int, bool) {
	return s.cache.LastTotal(filter)
}

// PageCount returns how many pages a listing of total items spans
func (s *ListingService) PageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + s.pageSize - 1) / s.pageSize
}
