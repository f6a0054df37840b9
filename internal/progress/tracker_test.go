// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bulkctl/bulkctl/internal/domain"
)

func TestTracker_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		total int
		ticks []domain.BulkJob
		want  []domain.BulkJob
	}{
		{
			name:  "total stays pinned",
			total: 10,
			ticks: []domain.BulkJob{
				{Total: 12, Done: 1},
				{Total: 8, Done: 2},
			},
			want: []domain.BulkJob{
				{Total: 10, Done: 1},
				{Total: 10, Done: 2},
			},
		},
		{
			name:  "counters never decrease",
			total: 10,
			ticks: []domain.BulkJob{
				{Done: 5, Fail: 2},
				{Done: 3, Fail: 1},
			},
			want: []domain.BulkJob{
				{Total: 10, Done: 5, Fail: 2},
				{Total: 10, Done: 5, Fail: 2},
			},
		},
		{
			name:  "overflow is clamped without decreasing fail",
			total: 10,
			ticks: []domain.BulkJob{
				{Done: 5, Fail: 3},
				{Done: 9, Fail: 3},
			},
			want: []domain.BulkJob{
				{Total: 10, Done: 5, Fail: 3},
				{Total: 10, Done: 7, Fail: 3},
			},
		},
		{
			name:  "unknown total adopted from the first tick",
			total: 0,
			ticks: []domain.BulkJob{
				{Total: 4, Done: 1},
				{Total: 9, Done: 6},
			},
			want: []domain.BulkJob{
				{Total: 4, Done: 1},
				{Total: 4, Done: 4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.total)
			for i, tick := range tt.ticks {
				assert.Equal(t, tt.want[i], tr.Normalize(tick))
			}
		})
	}
}

func TestTracker_ConcurrentReportsStayMonotonic(t *testing.T) {
	const total = 200
	tr := NewTracker(total)

	var mu sync.Mutex
	var seen []domain.BulkJob
	onUpdate := func(job domain.BulkJob) {
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Report(domain.BulkJob{Done: w*25 + i, Fail: i % 3, Status: domain.JobRunning}, onUpdate)
			}
		}(w)
	}
	wg.Wait()

	prev := domain.BulkJob{}
	for _, job := range seen {
		assert.Equal(t, total, job.Total)
		assert.LessOrEqual(t, job.Done+job.Fail, total)
		assert.GreaterOrEqual(t, job.Done, prev.Done)
		assert.GreaterOrEqual(t, job.Fail, prev.Fail)
		prev = job
	}
}
