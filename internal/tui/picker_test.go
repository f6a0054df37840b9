// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/domain"
)

type fakeSource struct {
	total    int
	pageSize int
	calls    []domain.Filter
}

func (f *fakeSource) Page(ctx context.Context, filter domain.Filter, page int) (*domain.Page, error) {
	f.calls = append(f.calls, filter)
	var items []domain.Item
	for i := (page - 1) * f.pageSize; i < min(page*f.pageSize, f.total); i++ {
		items = append(items, domain.Item{ID: fmt.Sprintf("i%d", i), Name: "item"})
	}
	return &domain.Page{Items: items, Total: f.total, Page: page, PageSize: f.pageSize}, nil
}

func (f *fakeSource) PageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + f.pageSize - 1) / f.pageSize
}

// load runs the picker's pending page load synchronously
func load(t *testing.T, m *PickerModel) {
	t.Helper()
	_, _ = m.Update(m.loadPage()())
	require.False(t, m.loading)
}

func newTestPicker(t *testing.T, total int) (*PickerModel, *fakeSource) {
	t.Helper()
	src := &fakeSource{total: total, pageSize: 3}
	m := NewPickerModel(context.Background(), src, domain.Filter{}, domain.ActionDelete)
	load(t, m)
	return m, src
}

func TestPicker_ToggleAndConfirm(t *testing.T) {
	m, _ := newTestPicker(t, 7)

	_, _ = m.Update(keyMsg(" "))
	_, _ = m.Update(keyMsg("j"))
	_, _ = m.Update(keyMsg("j"))
	_, _ = m.Update(keyMsg(" "))
	assert.Contains(t, m.View(), "2 items selected")

	_, cmd := m.Update(keyMsg("enter"))
	assert.True(t, isQuit(cmd))

	sel, total, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, 7, total)
	assert.Equal(t, domain.ExplicitSelection("i0", "i2"), sel)
}

func TestPicker_ConfirmIgnoredWhenEmpty(t *testing.T) {
	m, _ := newTestPicker(t, 7)

	_, cmd := m.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	_, _, ok := m.Result()
	assert.False(t, ok)
}

func TestPicker_SelectAllMatchingWithExclusion(t *testing.T) {
	m, _ := newTestPicker(t, 530)

	_, _ = m.Update(keyMsg("A"))
	_, _ = m.Update(keyMsg(" "))
	assert.Contains(t, m.View(), "529 items selected (all matching)")

	_, _ = m.Update(keyMsg("enter"))
	sel, _, ok := m.Result()
	require.True(t, ok)
	assert.True(t, sel.IsAllMatching())
	assert.Contains(t, sel.Excluded, "i0")
}

func TestPicker_PagingAndPageOnly(t *testing.T) {
	m, _ := newTestPicker(t, 7)

	_, cmd := m.Update(keyMsg("l"))
	require.NotNil(t, cmd)
	_, _ = m.Update(cmd())
	assert.Equal(t, 2, m.pageNum)
	assert.Equal(t, []string{"i3", "i4", "i5"}, m.pageIDs())

	_, _ = m.Update(keyMsg("A"))
	_, _ = m.Update(keyMsg("P"))
	sel := m.sel.Snapshot()
	assert.Equal(t, domain.SelectionExplicit, sel.Mode)
	assert.Equal(t, []string{"i3", "i4", "i5"}, sel.IDs)

	_, _ = m.Update(keyMsg("l"))
	_, _ = m.Update(m.loadPage()())
	_, cmd = m.Update(keyMsg("l"))
	assert.Nil(t, cmd, "no page past the last")
	assert.Equal(t, 3, m.pageNum)
}

func TestPicker_SearchResetsSelection(t *testing.T) {
	m, src := newTestPicker(t, 7)
	_, _ = m.Update(keyMsg(" "))

	_, _ = m.Update(keyMsg("/"))
	require.True(t, m.searching)
	for _, r := range "nightly" {
		_, _ = m.Update(keyMsg(string(r)))
	}
	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	_, _ = m.Update(cmd())

	assert.False(t, m.searching)
	assert.Equal(t, "nightly", m.sel.Filter().Search)
	assert.Equal(t, 0, m.sel.SelectedCount(7), "changing the filter clears the selection")
	assert.Equal(t, domain.Filter{Search: "nightly"}, src.calls[len(src.calls)-1])
}

func TestPicker_StaleFilterResponseDropped(t *testing.T) {
	m, _ := newTestPicker(t, 7)
	_, _ = m.Update(keyMsg("/"))
	_, _ = m.Update(keyMsg("x"))
	_, _ = m.Update(keyMsg("enter"))

	_, _ = m.Update(pageLoadedMsg{filter: domain.Filter{}, page: &domain.Page{Total: 99}})
	assert.True(t, m.loading)
}

func TestPicker_Quit(t *testing.T) {
	m, _ := newTestPicker(t, 7)
	_, _ = m.Update(keyMsg(" "))

	_, cmd := m.Update(keyMsg("q"))
	assert.True(t, isQuit(cmd))
	_, _, ok := m.Result()
	assert.False(t, ok)
}
