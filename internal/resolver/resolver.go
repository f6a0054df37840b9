// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
)

const (
	DefaultPageSize    = 200
	DefaultConcurrency = 4
	DefaultMaxItems    = 1_000_000
)

type Config struct {
	PageSize    int
	Concurrency int
	// MaxItems bounds the total a listing may report before resolution is refused
	MaxItems int
}

func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		Concurrency: DefaultConcurrency,
		MaxItems:    DefaultMaxItems,
	}
}

// Resolver expands a Selection into concrete item ids by walking every page of the
// selection's filter.
type Resolver struct {
	lister domain.ItemLister
	config Config
	logger *slog.Logger
}

func New(lister domain.ItemLister, config Config, logger *slog.Logger) *Resolver {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.MaxItems <= 0 {
		config.MaxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, config: config, logger: logger}
}

// Resolve returns the target ids. Explicit selections come back as-is. For
// AllMatching, page 1 fixes the total, pages 2..N are fetched concurrently, and
// ids are concatenated in page order with excluded ids removed. Ids are not
// deduplicated: if the collection changes mid-walk the result may hold duplicates
// or gaps. An empty result is not an error.
func (r *Resolver) Resolve(ctx context.Context, sel domain.Selection) ([]string, error) {
	if !sel.IsAllMatching() {
		ids := make([]string, len(sel.IDs))
		copy(ids, sel.IDs)
		return ids, nil
	}

	first, err := r.lister.ListItems(ctx, sel.Filter, 1, r.config.PageSize)
	if err != nil {
		return nil, &errors.ResolutionError{Page: 1, Err: err}
	}

	total := first.Total
	if total > r.config.MaxItems {
		return nil, &errors.ResolutionError{
			Page: 1,
			Err:  fmt.Errorf("listing reports %d matching items, more than the %d that can be resolved", total, r.config.MaxItems),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &errors.ResolutionError{Page: 1, Err: err}
	}
	pageCount := (total + r.config.PageSize - 1) / r.config.PageSize
	r.logger.Debug("resolving all-matching selection",
		"filter", sel.Filter.Key(),
		"total", total,
		"pages", pageCount,
		"excluded", len(sel.Excluded))

	pages := make([][]string, max(pageCount, 1))
	pages[0] = first.IDs()

	if pageCount > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.config.Concurrency)
		for p := 2; p <= pageCount; p++ {
			p := p
			g.Go(func() error {
				page, err := r.lister.ListItems(gctx, sel.Filter, p, r.config.PageSize)
				if err != nil {
					return &errors.ResolutionError{Page: p, Err: err}
				}
				pages[p-1] = page.IDs()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var ids []string
	for _, pageIDs := range pages {
		for _, id := range pageIDs {
			if _, skip := sel.Excluded[id]; skip {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
