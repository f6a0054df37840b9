// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package executor runs a mutation against every id directly, with a bounded
// number of worker loops sharing one cursor.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/bulkctl/bulkctl/internal/domain"
)

const DefaultConcurrency = 8

// Worker applies the mutation to one id
type Worker func(ctx context.Context, id string) error

// ProgressHook receives the running ok/fail counts after each item settles. It may
// be called from several goroutines at once.
type ProgressHook func(ok, fail int)

type Config struct {
	Concurrency int
}

type Executor struct {
	config Config
	logger *slog.Logger
}

func New(config Config, logger *slog.Logger) *Executor {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{config: config, logger: logger}
}

func (e *Executor) Concurrency() int {
	return e.config.Concurrency
}

// cursor hands out the next unclaimed index. The stop check runs under the same
// lock as the claim, so nothing is claimed once stop reports true.
type cursor struct {
	mu   sync.Mutex
	next int
	size int
}

func (c *cursor) claim(stop func() bool) (i int, claimed, stopped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= c.size {
		return 0, false, false
	}
	if stop() {
		return 0, false, true
	}
	i = c.next
	c.next++
	return i, true, false
}

// Run invokes worker once per id. Each loop checks shouldCancel (and ctx) before
// claiming the next index; work already in flight is left to finish. A failing or
// panicking item is counted and the loop moves on. Run returns after every loop
// has exited. Cancelled is set only if ids were left unclaimed.
func (e *Executor) Run(ctx context.Context, ids []string, worker Worker, shouldCancel func() bool, onProgress ProgressHook) domain.ExecutionResult {
	if len(ids) == 0 {
		return domain.ExecutionResult{}
	}
	if shouldCancel == nil {
		shouldCancel = func() bool { return false }
	}

	stop := func() bool { return shouldCancel() || ctx.Err() != nil }
	cur := &cursor{size: len(ids)}
	var ok, fail atomic.Int64
	var cancelled atomic.Bool

	loops := min(e.config.Concurrency, len(ids))
	e.logger.Debug("starting batch", "items", len(ids), "workers", loops)

	var wg conc.WaitGroup
	for w := 0; w < loops; w++ {
		wg.Go(func() {
			for {
				i, claimed, stopped := cur.claim(stop)
				if stopped {
					cancelled.Store(true)
				}
				if !claimed {
					return
				}
				id := ids[i]

				var err error
				if r := panics.Try(func() { err = worker(ctx, id) }); r != nil {
					err = r.AsError()
				}

				var nOK, nFail int64
				if err != nil {
					e.logger.Debug("item failed", "id", id, "error", err)
					nFail = fail.Add(1)
					nOK = ok.Load()
				} else {
					nOK = ok.Add(1)
					nFail = fail.Load()
				}
				if onProgress != nil {
					onProgress(int(nOK), int(nFail))
				}
			}
		})
	}
	wg.Wait()

	result := domain.ExecutionResult{
		OK:        int(ok.Load()),
		Fail:      int(fail.Load()),
		Cancelled: cancelled.Load(),
	}
	e.logger.Debug("batch finished", "ok", result.OK, "fail", result.Fail, "cancelled", result.Cancelled)
	return result
}
