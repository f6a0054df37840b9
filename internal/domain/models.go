// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import (
	"fmt"
	"strings"
)

// ItemStatus is the status enum a listing can be filtered by
type ItemStatus string

const (
	ItemStatusAny       ItemStatus = ""
	ItemStatusActive    ItemStatus = "active"
	ItemStatusPaused    ItemStatus = "paused"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusCompleted ItemStatus = "completed"
)

// IsValid reports whether s is a known status or the empty "any" value
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusAny, ItemStatusActive, ItemStatusPaused, ItemStatusFailed, ItemStatusCompleted:
		return true
	}
	return false
}

// ItemSource is the source enum a listing can be filtered by
type ItemSource string

const (
	ItemSourceAny       ItemSource = ""
	ItemSourceManual    ItemSource = "manual"
	ItemSourceScheduled ItemSource = "scheduled"
	ItemSourceAPI       ItemSource = "api"
)

// IsValid reports whether s is a known source or the empty "any" value
func (s ItemSource) IsValid() bool {
	switch s {
	case ItemSourceAny, ItemSourceManual, ItemSourceScheduled, ItemSourceAPI:
		return true
	}
	return false
}

// Filter is a predicate over the listing. Two filters are equal iff every field matches,
// which is what == on the struct gives us.
type Filter struct {
	Search string     `json:"search,omitempty" yaml:"search,omitempty"`
	Status ItemStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Source ItemSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// Validate rejects unknown enum values
func (f Filter) Validate() error {
	if !f.Status.IsValid() {
		return fmt.Errorf("invalid status filter %q", f.Status)
	}
	if !f.Source.IsValid() {
		return fmt.Errorf("invalid source filter %q", f.Source)
	}
	return nil
}

// Key returns a stable cache key for the filter
func (f Filter) Key() string {
	return fmt.Sprintf("q=%s|status=%s|source=%s", strings.TrimSpace(f.Search), f.Status, f.Source)
}

// Item is a single listing row. Only the ID matters to bulk operations.
type Item struct {
	ID     string
	Name   string
	Status ItemStatus
	Source ItemSource
}

// Page is one page of a filtered listing together with the server-reported total
type Page struct {
	Items    []Item
	Total    int
	Page     int
	PageSize int
}

// IDs returns the item ids of the page in display order
func (p *Page) IDs() []string {
	ids := make([]string, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// Action is an opaque mutation name such as "delete" or "pause"
type Action string

const (
	ActionDelete Action = "delete"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

// Validate accepts any non-empty, whitespace-free action name
func (a Action) Validate() error {
	if a == "" {
		return fmt.Errorf("action is required")
	}
	if strings.ContainsAny(string(a), " \t\n/") {
		return fmt.Errorf("invalid action %q", a)
	}
	return nil
}

// PastTense returns the verb used in settlement summaries
func (a Action) PastTense() string {
	switch a {
	case ActionDelete:
		return "Deleted"
	case ActionPause:
		return "Paused"
	case ActionResume:
		return "Resumed"
	default:
		return fmt.Sprintf("Applied %s to", a)
	}
}

// SelectionMode tags the Selection variant
type SelectionMode int

const (
	SelectionExplicit SelectionMode = iota
	SelectionAllMatching
)

func (m SelectionMode) String() string {
	if m == SelectionAllMatching {
		return "all-matching"
	}
	return "explicit"
}

// Selection describes which items a bulk action targets. It is either an explicit,
// ordered id set or "every item matching Filter minus Excluded". Excluded is only ever
// populated in AllMatching mode.
type Selection struct {
	Mode     SelectionMode
	IDs      []string
	Filter   Filter
	Excluded map[string]struct{}
}

// ExplicitSelection builds an Explicit selection, dropping repeated ids
func ExplicitSelection(ids ...string) Selection {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return Selection{Mode: SelectionExplicit, IDs: out}
}

// AllMatchingSelection builds an AllMatching selection
func AllMatchingSelection(filter Filter, excluded ...string) Selection {
	ex := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		if id != "" {
			ex[id] = struct{}{}
		}
	}
	return Selection{Mode: SelectionAllMatching, Filter: filter, Excluded: ex}
}

// IsAllMatching reports whether the selection is the AllMatching variant
func (s Selection) IsAllMatching() bool {
	return s.Mode == SelectionAllMatching
}

// ExcludedIDs returns the excluded ids in no particular order
func (s Selection) ExcludedIDs() []string {
	out := make([]string, 0, len(s.Excluded))
	for id := range s.Excluded {
		out = append(out, id)
	}
	return out
}

// SelectedCount is computed, never stored. total is the listing's most recent
// server-reported total and may be stale.
func (s Selection) SelectedCount(total int) int {
	if s.Mode == SelectionExplicit {
		return len(s.IDs)
	}
	return max(0, total-len(s.Excluded))
}

// IsEmpty reports whether an explicit selection has nothing in it. An AllMatching
// selection is never considered empty before resolution.
func (s Selection) IsEmpty() bool {
	return s.Mode == SelectionExplicit && len(s.IDs) == 0
}

// Scope is what the server needs to run a bulk job: explicit ids, or a filter the
// server re-resolves itself.
type Scope struct {
	IDs      []string
	Filter   *Filter
	Excluded []string
}

// ScopeFor derives the delegation scope from a selection
func ScopeFor(sel Selection) Scope {
	if sel.IsAllMatching() {
		f := sel.Filter
		return Scope{Filter: &f, Excluded: sel.ExcludedIDs()}
	}
	ids := make([]string, len(sel.IDs))
	copy(ids, sel.IDs)
	return Scope{IDs: ids}
}

// JobStatus is the lifecycle state of a BulkJob
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// IsTerminal returns true for every status other than running
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobCancelled, JobFailed:
		return true
	default:
		return false
	}
}

var jobStatusAliases = map[string]JobStatus{
	"running":     JobRunning,
	"pending":     JobRunning,
	"queued":      JobRunning,
	"in_progress": JobRunning,
	"processing":  JobRunning,
	"completed":   JobCompleted,
	"complete":    JobCompleted,
	"done":        JobCompleted,
	"succeeded":   JobCompleted,
	"success":     JobCompleted,
	"cancelled":   JobCancelled,
	"canceled":    JobCancelled,
	"failed":      JobFailed,
	"error":       JobFailed,
}

// ParseJobStatus maps a server status to a JobStatus, ignoring case and the
// common spellings servers use. ok is false for anything unrecognised.
func ParseJobStatus(s string) (JobStatus, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	status, ok := jobStatusAliases[key]
	return status, ok
}

// BulkJob is the unified status record of one delegated or locally executed run
type BulkJob struct {
	JobID  string
	Total  int
	Done   int
	Fail   int
	Status JobStatus
}

// Processed returns done + fail
func (j BulkJob) Processed() int {
	return j.Done + j.Fail
}

// IsTerminal returns true once the job has settled
func (j BulkJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// JobHandle is returned by a successful start-bulk call
type JobHandle struct {
	JobID string
	Total int
}

// ExecutionResult is produced once by whichever path ran to completion
type ExecutionResult struct {
	OK        int
	Fail      int
	Cancelled bool
}

// ResultFromJob converts a settled BulkJob into an ExecutionResult
func ResultFromJob(job BulkJob) ExecutionResult {
	return ExecutionResult{
		OK:        job.Done,
		Fail:      job.Fail,
		Cancelled: job.Status == JobCancelled,
	}
}

// ExecutionPath records which path settled a run
type ExecutionPath string

const (
	PathServerJob ExecutionPath = "server-job"
	PathLocal     ExecutionPath = "local"
)
