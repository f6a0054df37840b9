// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coordinator runs one bulk action end to end: delegate to a server job
// when the server supports it, otherwise resolve targets and mutate them locally.
package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bulkctl/bulkctl/internal/bulkjob"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
	"github.com/bulkctl/bulkctl/internal/executor"
	"github.com/bulkctl/bulkctl/internal/progress"
	"github.com/bulkctl/bulkctl/internal/resolver"
)

// Request is one bulk action over a selection
type Request struct {
	Selection  domain.Selection
	Action     domain.Action
	OnProgress domain.ProgressCallback
}

// Outcome describes a settled run
type Outcome struct {
	Path   domain.ExecutionPath
	Result domain.ExecutionResult
	Final  domain.BulkJob
	Action domain.Action
}

// Summary renders the single line shown when a run settles
func (o *Outcome) Summary() string {
	return Summarize(o.Action, o.Final.Status, o.Result, o.Final.Total)
}

type Coordinator struct {
	resolver   *resolver.Resolver
	jobs       *bulkjob.Client
	executor   *executor.Executor
	mutator    domain.ItemMutator
	listing    domain.ListingCache
	capability domain.CapabilityCache
	logger     *slog.Logger

	running         atomic.Bool
	cancelRequested atomic.Bool

	mu    sync.Mutex
	jobID string
}

func New(
	res *resolver.Resolver,
	jobs *bulkjob.Client,
	exec *executor.Executor,
	mutator domain.ItemMutator,
	listing domain.ListingCache,
	capability domain.CapabilityCache,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		resolver:   res,
		jobs:       jobs,
		executor:   exec,
		mutator:    mutator,
		listing:    listing,
		capability: capability,
		logger:     logger,
	}
}

// IsRunning reports whether a run is active
func (c *Coordinator) IsRunning() bool {
	return c.running.Load()
}

// ActiveJobID returns the server job id of the active run, if it was delegated
func (c *Coordinator) ActiveJobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

// Run executes req. Only one run may be active at a time. The listing cache is
// marked stale whenever a run settles, whatever the outcome.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Action.Validate(); err != nil {
		return nil, &errors.ValidationError{Field: "action", Value: req.Action, Message: err.Error()}
	}
	if err := req.Selection.Filter.Validate(); err != nil {
		return nil, &errors.ValidationError{Field: "filter", Value: req.Selection.Filter, Message: err.Error()}
	}
	if req.Selection.IsEmpty() {
		return nil, errors.ErrEmptySelection
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil, errors.ErrRunInProgress
	}
	defer c.settle()

	defer func() {
		if c.listing != nil {
			c.listing.Invalidate()
		}
	}()

	c.logger.Debug("bulk run starting",
		"action", req.Action,
		"mode", req.Selection.Mode,
		"explicit_ids", len(req.Selection.IDs),
		"excluded", len(req.Selection.Excluded))

	if c.capability == nil || !c.capability.BulkUnsupported() {
		outcome, err := c.runServerJob(ctx, req)
		if !stderrors.Is(err, errors.ErrUnsupported) {
			return outcome, err
		}
		if c.capability != nil {
			c.capability.MarkBulkUnsupported()
		}
		c.logger.Debug("falling back to local execution", "action", req.Action)
	}

	return c.runLocal(ctx, req)
}

// Cancel requests cooperative cancellation of the active run. A delegated job also
// gets a best-effort server-side cancel. Returns false when nothing is running.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	if !c.running.Load() {
		c.mu.Unlock()
		return false
	}
	c.cancelRequested.Store(true)
	c.mu.Unlock()

	if jobID := c.ActiveJobID(); jobID != "" {
		go c.jobs.Cancel(context.Background(), jobID)
	}
	return true
}

// settle ends the active run. The stop flag is only ever set while a run is active,
// so the next run always starts with it clear.
func (c *Coordinator) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelRequested.Store(false)
	c.running.Store(false)
}

func (c *Coordinator) runServerJob(ctx context.Context, req Request) (*Outcome, error) {
	handle, err := c.jobs.Start(ctx, domain.ScopeFor(req.Selection), req.Action)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.jobID = handle.JobID
	cancelledEarly := c.cancelRequested.Load()
	c.mu.Unlock()
	defer c.clearJobID()

	if cancelledEarly {
		go c.jobs.Cancel(context.Background(), handle.JobID)
	}

	tracker := progress.NewTracker(handle.Total)
	tracker.Report(domain.BulkJob{JobID: handle.JobID, Total: handle.Total, Status: domain.JobRunning}, req.OnProgress)

	job, err := c.jobs.Run(ctx, *handle, c.cancelRequested.Load, func(job domain.BulkJob) {
		tracker.Report(job, req.OnProgress)
	})
	if err != nil {
		return nil, fmt.Errorf("bulk job %s: %w", handle.JobID, err)
	}

	final := tracker.Normalize(job)
	c.logger.Debug("bulk job settled",
		"job_id", handle.JobID,
		"status", final.Status,
		"done", final.Done,
		"fail", final.Fail,
		"total", final.Total)

	return &Outcome{
		Path:   domain.PathServerJob,
		Result: domain.ResultFromJob(final),
		Final:  final,
		Action: req.Action,
	}, nil
}

func (c *Coordinator) runLocal(ctx context.Context, req Request) (*Outcome, error) {
	ids, err := c.resolver.Resolve(ctx, req.Selection)
	if err != nil {
		return nil, err
	}

	total := len(ids)
	tracker := progress.NewTracker(total)
	tracker.Report(domain.BulkJob{Total: total, Status: domain.JobRunning}, req.OnProgress)

	worker := func(ctx context.Context, id string) error {
		return c.mutator.MutateItem(ctx, id, req.Action)
	}
	hook := func(ok, fail int) {
		tracker.Report(domain.BulkJob{Total: total, Done: ok, Fail: fail, Status: domain.JobRunning}, req.OnProgress)
	}

	result := c.executor.Run(ctx, ids, worker, c.cancelRequested.Load, hook)

	status := domain.JobCompleted
	if result.Cancelled {
		status = domain.JobCancelled
	}
	final := tracker.Report(domain.BulkJob{
		Total:  total,
		Done:   result.OK,
		Fail:   result.Fail,
		Status: status,
	}, req.OnProgress)

	return &Outcome{
		Path:   domain.PathLocal,
		Result: result,
		Final:  final,
		Action: req.Action,
	}, nil
}

func (c *Coordinator) clearJobID() {
	c.mu.Lock()
	c.jobID = ""
	c.mu.Unlock()
}
