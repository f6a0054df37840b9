// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection tracks which listing items a bulk action targets across
// paginated, filtered views without enumerating the "all matching" case.
package selection

import (
	"github.com/bulkctl/bulkctl/internal/domain"
)

// Model is interactive selection state. It is owned by a single UI goroutine and
// is not safe for concurrent use; runs work on a Snapshot.
type Model struct {
	filter   domain.Filter
	mode     domain.SelectionMode
	ids      []string
	index    map[string]int
	excluded map[string]struct{}
}

func New(filter domain.Filter) *Model {
	m := &Model{filter: filter}
	m.Clear()
	return m
}

// Filter returns the filter the selection is bound to
func (m *Model) Filter() domain.Filter {
	return m.filter
}

func (m *Model) Mode() domain.SelectionMode {
	return m.mode
}

// SetFilter rebinds the model. A different filter always resets the selection to
// empty. Returns true when the filter changed.
func (m *Model) SetFilter(filter domain.Filter) bool {
	if filter == m.filter {
		return false
	}
	m.filter = filter
	m.Clear()
	return true
}

// Clear resets to an empty explicit selection
func (m *Model) Clear() {
	m.mode = domain.SelectionExplicit
	m.ids = nil
	m.index = make(map[string]int)
	m.excluded = make(map[string]struct{})
}

// Toggle flips inclusion of one id. Under AllMatching it edits the exclusion set.
func (m *Model) Toggle(id string) {
	if id == "" {
		return
	}
	if m.mode == domain.SelectionAllMatching {
		if _, ok := m.excluded[id]; ok {
			delete(m.excluded, id)
		} else {
			m.excluded[id] = struct{}{}
		}
		return
	}
	if _, ok := m.index[id]; ok {
		m.remove(id)
	} else {
		m.add(id)
	}
}

// TogglePage selects every id on the page, or deselects them all when the page is
// already fully selected.
func (m *Model) TogglePage(pageIDs []string) {
	if len(pageIDs) == 0 {
		return
	}
	allSelected := true
	for _, id := range pageIDs {
		if !m.IsSelected(id) {
			allSelected = false
			break
		}
	}

	for _, id := range pageIDs {
		if id == "" {
			continue
		}
		switch {
		case m.mode == domain.SelectionAllMatching && allSelected:
			m.excluded[id] = struct{}{}
		case m.mode == domain.SelectionAllMatching:
			delete(m.excluded, id)
		case allSelected:
			m.remove(id)
		default:
			m.add(id)
		}
	}
}

// SelectAllMatching promotes to "every item matching the filter". Prior explicit
// ids are dropped and the exclusion set starts empty.
func (m *Model) SelectAllMatching() {
	m.mode = domain.SelectionAllMatching
	m.ids = nil
	m.index = make(map[string]int)
	m.excluded = make(map[string]struct{})
}

// SelectPageOnly demotes back to an explicit selection of exactly the given page
func (m *Model) SelectPageOnly(pageIDs []string) {
	m.Clear()
	for _, id := range pageIDs {
		if id != "" {
			m.add(id)
		}
	}
}

// IsSelected reports whether id is currently targeted
func (m *Model) IsSelected(id string) bool {
	if m.mode == domain.SelectionAllMatching {
		_, excluded := m.excluded[id]
		return !excluded
	}
	_, ok := m.index[id]
	return ok
}

// SelectedCount uses the most recent server-reported total for the filter
func (m *Model) SelectedCount(total int) int {
	return m.Snapshot().SelectedCount(total)
}

// Snapshot returns an immutable copy suitable for handing to a run
func (m *Model) Snapshot() domain.Selection {
	if m.mode == domain.SelectionAllMatching {
		excluded := make([]string, 0, len(m.excluded))
		for id := range m.excluded {
			excluded = append(excluded, id)
		}
		return domain.AllMatchingSelection(m.filter, excluded...)
	}
	return domain.ExplicitSelection(m.ids...)
}

func (m *Model) add(id string) {
	if _, ok := m.index[id]; ok {
		return
	}
	m.index[id] = len(m.ids)
	m.ids = append(m.ids, id)
}

func (m *Model) remove(id string) {
	pos, ok := m.index[id]
	if !ok {
		return
	}
	m.ids = append(m.ids[:pos], m.ids[pos+1:]...)
	delete(m.index, id)
	for i := pos; i < len(m.ids); i++ {
		m.index[m.ids[i]] = i
	}
}
