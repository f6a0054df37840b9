// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package container

import (
	"io"
	"log/slog"
	"os"

	"github.com/bulkctl/bulkctl/internal/api"
	"github.com/bulkctl/bulkctl/internal/bulkjob"
	"github.com/bulkctl/bulkctl/internal/cache"
	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/coordinator"
	"github.com/bulkctl/bulkctl/internal/executor"
	"github.com/bulkctl/bulkctl/internal/progress"
	"github.com/bulkctl/bulkctl/internal/resolver"
	"github.com/bulkctl/bulkctl/internal/services"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	logger      *slog.Logger
	apiClient   *api.Client
	listing     *cache.ListingCache
	capability  *cache.CapabilityCache
	listingSvc  *services.ListingService
	jobs        *bulkjob.Client
	coordinator *coordinator.Coordinator
}

// Option customizes container construction
type Option func(*options)

type options struct {
	logOutput io.Writer
	apiOpts   []api.ClientOption
}

// WithLogOutput sends logs somewhere other than stderr
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithAPIOptions forwards options to the API client
func WithAPIOptions(opts ...api.ClientOption) Option {
	return func(o *options) { o.apiOpts = append(o.apiOpts, opts...) }
}

// NewLogger builds the process logger: debug level when debug is set, warnings otherwise
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, opts ...Option) *Container {
	o := &options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	logger := NewLogger(o.logOutput, cfg.Debug)
	apiClient := api.NewClient(cfg.APIKey, cfg.APIURL, logger, o.apiOpts...)

	listing := cache.NewListingCache(cfg.Listing.CacheTTL)
	capability := cache.NewCapabilityCache(cfg.Bulk.CapabilityTTL)

	res := resolver.New(apiClient, resolver.Config{
		PageSize:    cfg.Bulk.PageSize,
		Concurrency: cfg.Bulk.ResolveConcurrency,
	}, logger)
	follower := progress.NewFollower(apiClient, progress.Config{
		ConnectTimeout: cfg.Bulk.ConnectTimeout,
		PollInterval:   cfg.Bulk.PollInterval,
	}, logger)
	jobs := bulkjob.New(apiClient, follower, logger)
	exec := executor.New(executor.Config{Concurrency: cfg.Bulk.Concurrency}, logger)

	return &Container{
		config:      cfg,
		logger:      logger,
		apiClient:   apiClient,
		listing:     listing,
		capability:  capability,
		listingSvc:  services.NewListingService(apiClient, listing, cfg.Listing.PageSize, logger),
		jobs:        jobs,
		coordinator: coordinator.New(res, jobs, exec, apiClient, listing, capability, logger),
	}
}

// Config returns the application configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

func (c *Container) APIClient() *api.Client {
	return c.apiClient
}

// ListingService returns the cached listing service
func (c *Container) ListingService() *services.ListingService {
	return c.listingSvc
}

// Jobs returns the server bulk job client
func (c *Container) Jobs() *bulkjob.Client {
	return c.jobs
}

// Coordinator returns the bulk action coordinator
func (c *Container) Coordinator() *coordinator.Coordinator {
	return c.coordinator
}

// Close stops the listing cache's expiry loop
func (c *Container) Close() {
	c.listing.Stop()
}
