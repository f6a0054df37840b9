// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"sync"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// Tracker normalizes ticks from either execution path: total is pinned once
// established, done and fail never decrease, and done+fail never exceeds total.
type Tracker struct {
	mu     sync.Mutex
	total  int
	pinned bool
	done   int
	fail   int
}

// NewTracker pins total when it is already known. A zero total is adopted from
// the first tick that reports one.
func NewTracker(total int) *Tracker {
	t := &Tracker{}
	if total > 0 {
		t.total = total
		t.pinned = true
	}
	return t
}

// Report normalizes job and hands it to onUpdate. Delivery happens under the
// tracker lock so concurrent reporters cannot reorder ticks.
func (t *Tracker) Report(job domain.BulkJob, onUpdate domain.ProgressCallback) domain.BulkJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	job = t.normalize(job)
	if onUpdate != nil {
		onUpdate(job)
	}
	return job
}

// Normalize applies the same rules as Report without delivering
func (t *Tracker) Normalize(job domain.BulkJob) domain.BulkJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.normalize(job)
}

func (t *Tracker) normalize(job domain.BulkJob) domain.BulkJob {
	if !t.pinned && job.Total > 0 {
		t.total = job.Total
		t.pinned = true
	}
	total := t.total

	done := min(max(job.Done, t.done), total)
	fail := max(job.Fail, t.fail)
	if done+fail > total {
		fail = max(total-done, t.fail)
		done = total - fail
	}

	t.done, t.fail = done, fail
	job.Total, job.Done, job.Fail = total, done, fail
	return job
}
