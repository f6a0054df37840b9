// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
)

// pushChannel trusts the event stream exclusively until it reports a terminal status
type pushChannel struct {
	api    domain.BulkJobAPI
	sub    domain.JobSubscription
	last   domain.BulkJob
	logger *slog.Logger

	// pending is an event received while the transport was being chosen
	pending *domain.JobEvent

	closeOnce sync.Once
	closeErr  error
}

func (c *pushChannel) Transport() Transport {
	return TransportPush
}

func (c *pushChannel) Run(ctx context.Context, onUpdate domain.ProgressCallback) (domain.BulkJob, error) {
	defer func() { _ = c.Close() }()

	if c.pending != nil {
		ev := *c.pending
		c.pending = nil
		if done, job, err := c.handle(ctx, ev, onUpdate); done {
			return job, err
		}
	}

	events := c.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return c.last, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				c.logger.Debug("job event stream closed early", "job_id", c.last.JobID)
				return c.settleFromStatus(ctx, onUpdate)
			}
			if done, job, err := c.handle(ctx, ev, onUpdate); done {
				return job, err
			}
		}
	}
}

// handle applies one event and reports whether the run is over
func (c *pushChannel) handle(ctx context.Context, ev domain.JobEvent, onUpdate domain.ProgressCallback) (bool, domain.BulkJob, error) {
	switch ev.Kind {
	case domain.JobEventProgress:
		if ev.Job == nil {
			return false, c.last, nil
		}
		c.observe(*ev.Job, onUpdate)
		if c.last.IsTerminal() {
			return true, c.last, nil
		}
		return false, c.last, nil

	case domain.JobEventEnd:
		job, err := c.settleFromStatus(ctx, onUpdate)
		return true, job, err

	default:
		c.logger.Debug("ignoring unknown job event", "kind", ev.Kind)
		return false, c.last, nil
	}
}

// observe records a server payload. The job id is the one the channel was opened for.
func (c *pushChannel) observe(job domain.BulkJob, onUpdate domain.ProgressCallback) {
	job.JobID = c.last.JobID
	c.last = job
	if onUpdate != nil {
		onUpdate(c.last)
	}
}

// settleFromStatus fetches the job once after the stream ends without a terminal
// progress event.
func (c *pushChannel) settleFromStatus(ctx context.Context, onUpdate domain.ProgressCallback) (domain.BulkJob, error) {
	job, err := c.api.GetBulkJob(ctx, c.last.JobID)
	if err != nil {
		return c.last, fmt.Errorf("fetch final job status: %w", err)
	}
	if !job.IsTerminal() {
		return c.last, errors.ErrStreamClosed
	}
	c.observe(*job, onUpdate)
	return c.last, nil
}

func (c *pushChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.sub.Close()
	})
	return c.closeErr
}
