// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package bulkjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
	"github.com/bulkctl/bulkctl/internal/progress"
)

const cancelTimeout = 10 * time.Second

// Client delegates a whole bulk operation to the server as one job
type Client struct {
	api      domain.BulkJobAPI
	follower *progress.Follower
	logger   *slog.Logger
}

func New(api domain.BulkJobAPI, follower *progress.Follower, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, follower: follower, logger: logger}
}

// Start asks the server to run action over scope. A route-not-implemented response
// comes back as errors.ErrUnsupported; anything else is a genuine failure.
func (c *Client) Start(ctx context.Context, scope domain.Scope, action domain.Action) (*domain.JobHandle, error) {
	handle, err := c.api.StartBulkJob(ctx, action, scope)
	if err != nil {
		if errors.IsUnsupported(err) {
			c.logger.Debug("server has no bulk job route", "action", action, "error", err)
			return nil, errors.ErrUnsupported
		}
		return nil, fmt.Errorf("start bulk job: %w", err)
	}
	if handle == nil || handle.JobID == "" {
		return nil, fmt.Errorf("start bulk job: server returned no job id")
	}

	c.logger.Debug("bulk job started", "job_id", handle.JobID, "total", handle.Total, "action", action)
	return handle, nil
}

// Run follows a started job to its terminal status
func (c *Client) Run(ctx context.Context, handle domain.JobHandle, shouldStop progress.StopFunc, onUpdate domain.ProgressCallback) (domain.BulkJob, error) {
	return c.follower.Follow(ctx, handle, shouldStop, onUpdate)
}

// Status fetches the current state of a job without following it
func (c *Client) Status(ctx context.Context, jobID string) (*domain.BulkJob, error) {
	return c.api.GetBulkJob(ctx, jobID)
}

// Cancel asks the server to stop a job. It never reports failure to the caller.
func (c *Client) Cancel(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if err := c.api.CancelBulkJob(ctx, jobID); err != nil {
		c.logger.Warn("server-side cancel failed", "job_id", jobID, "error", err)
		return
	}
	c.logger.Debug("server-side cancel requested", "job_id", jobID)
}
