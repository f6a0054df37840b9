// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// pollChannel re-fetches job status on a fixed interval
type pollChannel struct {
	api        domain.BulkJobAPI
	interval   time.Duration
	shouldStop StopFunc
	last       domain.BulkJob
	logger     *slog.Logger
}

func (c *pollChannel) Transport() Transport {
	return TransportPoll
}

// Run stops at the first terminal status. When the stop flag is seen first, the
// last observed state is reported once more as cancelled and the loop exits.
func (c *pollChannel) Run(ctx context.Context, onUpdate domain.ProgressCallback) (domain.BulkJob, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if c.shouldStop() {
			c.logger.Debug("stop requested, ending job poll", "job_id", c.last.JobID)
			c.last.Status = domain.JobCancelled
			if onUpdate != nil {
				onUpdate(c.last)
			}
			return c.last, nil
		}

		job, err := c.api.GetBulkJob(ctx, c.last.JobID)
		if err != nil {
			return c.last, fmt.Errorf("poll job %s: %w", c.last.JobID, err)
		}
		job.JobID = c.last.JobID
		c.last = *job
		if onUpdate != nil {
			onUpdate(c.last)
		}
		if c.last.IsTerminal() {
			return c.last, nil
		}

		select {
		case <-ctx.Done():
			return c.last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *pollChannel) Close() error {
	return nil
}
