// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import (
	"context"
)

// ItemLister lists one page of items matching a filter
type ItemLister interface {
	ListItems(ctx context.Context, filter Filter, page, pageSize int) (*Page, error)
}

// ItemMutator applies an action to a single item
type ItemMutator interface {
	MutateItem(ctx context.Context, id string, action Action) error
}

// JobEventKind distinguishes push events
type JobEventKind string

const (
	JobEventProgress JobEventKind = "progress"
	JobEventEnd      JobEventKind = "end"
)

// JobEvent is one push event. Job is only set for progress events.
type JobEvent struct {
	Kind JobEventKind
	Job  *BulkJob
}

// JobSubscription is an open push subscription to one job's events. Connected is
// closed once the stream is established; Events is closed when the stream ends.
type JobSubscription interface {
	Connected() <-chan struct{}
	Events() <-chan JobEvent
	Close() error
}

// BulkJobAPI is the server-side bulk job surface, which may not exist on a given server
type BulkJobAPI interface {
	StartBulkJob(ctx context.Context, action Action, scope Scope) (*JobHandle, error)
	GetBulkJob(ctx context.Context, jobID string) (*BulkJob, error)
	SubscribeBulkJob(ctx context.Context, jobID string) (JobSubscription, error)
	CancelBulkJob(ctx context.Context, jobID string) error
}

// ListingCache holds cached listing state that must be marked stale after a bulk run
type ListingCache interface {
	GetPage(filter Filter, page, pageSize int) (*Page, bool)
	SetPage(filter Filter, page *Page)
	LastTotal(filter Filter) (int, bool)
	Invalidate()
}

// CapabilityCache remembers whether the server supports bulk jobs
type CapabilityCache interface {
	BulkUnsupported() bool
	MarkBulkUnsupported()
}

// ProgressCallback receives every normalized BulkJob tick of a run
type ProgressCallback func(job BulkJob)
