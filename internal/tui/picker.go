// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/selection"
	"github.com/bulkctl/bulkctl/internal/tui/styles"
	"github.com/bulkctl/bulkctl/internal/utils"
)

// PageSource is the listing the picker browses
type PageSource interface {
	Page(ctx context.Context, filter domain.Filter, page int) (*domain.Page, error)
	PageCount(total int) int
}

type pageLoadedMsg struct {
	filter domain.Filter
	page   *domain.Page
	err    error
}

// PickerModel browses the filtered listing page by page and builds a selection.
// Enter confirms, q aborts.
type PickerModel struct {
	ctx    context.Context
	source PageSource
	action domain.Action

	sel     *selection.Model
	pageNum int
	current *domain.Page
	cursor  int
	loading bool
	err     error

	searching bool
	search    textinput.Model

	confirmed bool
	aborted   bool

	width   int
	spinner spinner.Model
	help    help.Model
	keys    PickerKeyMap
}

func NewPickerModel(ctx context.Context, source PageSource, filter domain.Filter, action domain.Action) *PickerModel {
	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = "/ "
	ti.SetValue(filter.Search)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	return &PickerModel{
		ctx:     ctx,
		source:  source,
		action:  action,
		sel:     selection.New(filter),
		pageNum: 1,
		loading: true,
		search:  ti,
		spinner: s,
		help:    help.New(),
		keys:    DefaultPickerKeyMap,
		width:   80,
	}
}

func (m *PickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadPage())
}

func (m *PickerModel) loadPage() tea.Cmd {
	filter, page := m.sel.Filter(), m.pageNum
	return func() tea.Msg {
		p, err := m.source.Page(m.ctx, filter, page)
		return pageLoadedMsg{filter: filter, page: p, err: err}
	}
}

func (m *PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case pageLoadedMsg:
		if msg.filter != m.sel.Filter() {
			// response for a filter the user has already moved away from
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.current = msg.page
			m.cursor = min(m.cursor, max(len(msg.page.Items)-1, 0))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m, m.handleSearchKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *PickerModel) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		filter := m.sel.Filter()
		filter.Search = strings.TrimSpace(m.search.Value())
		return m.applyFilter(filter)
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.sel.Filter().Search)
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

// applyFilter rebinds the selection; a changed filter clears it and restarts at page 1
func (m *PickerModel) applyFilter(filter domain.Filter) tea.Cmd {
	if !m.sel.SetFilter(filter) {
		return nil
	}
	m.pageNum = 1
	m.cursor = 0
	m.current = nil
	m.loading = true
	return m.loadPage()
}

func (m *PickerModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.aborted = true
		return tea.Quit
	case key.Matches(msg, m.keys.Confirm):
		if m.sel.Snapshot().IsEmpty() {
			return nil
		}
		m.confirmed = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m.search.Focus()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.current != nil && m.cursor < len(m.current.Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.NextPage):
		if m.current != nil && m.pageNum < m.source.PageCount(m.current.Total) {
			m.pageNum++
			m.cursor = 0
			m.loading = true
			return m.loadPage()
		}
	case key.Matches(msg, m.keys.PrevPage):
		if m.pageNum > 1 {
			m.pageNum--
			m.cursor = 0
			m.loading = true
			return m.loadPage()
		}
	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.cursorID(); ok {
			m.sel.Toggle(id)
		}
	case key.Matches(msg, m.keys.TogglePage):
		m.sel.TogglePage(m.pageIDs())
	case key.Matches(msg, m.keys.SelectMatching):
		m.sel.SelectAllMatching()
	case key.Matches(msg, m.keys.PageOnly):
		m.sel.SelectPageOnly(m.pageIDs())
	case key.Matches(msg, m.keys.Clear):
		m.sel.Clear()
	}
	return nil
}

func (m *PickerModel) cursorID() (string, bool) {
	if m.current == nil || m.cursor >= len(m.current.Items) {
		return "", false
	}
	return m.current.Items[m.cursor].ID, true
}

func (m *PickerModel) pageIDs() []string {
	if m.current == nil {
		return nil
	}
	return m.current.IDs()
}

// Result returns the confirmed selection. ok is false when the user quit.
func (m *PickerModel) Result() (sel domain.Selection, total int, ok bool) {
	if !m.confirmed {
		return domain.Selection{}, 0, false
	}
	return m.sel.Snapshot(), m.total(), true
}

func (m *PickerModel) total() int {
	if m.current == nil {
		return 0
	}
	return m.current.Total
}

func (m *PickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Select items to %s", m.action)))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
	} else if f := m.sel.Filter(); f != (domain.Filter{}) {
		b.WriteString(styles.DimStyle.Render("filter: " + describeFilter(f)))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading…\n")
	case m.err != nil:
		b.WriteString(styles.ErrorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.current == nil || len(m.current.Items) == 0:
		b.WriteString(styles.DimStyle.Render("No items match.") + "\n")
	default:
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBarStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *PickerModel) renderRows() string {
	var b strings.Builder
	nameWidth := max(m.width-24, 20)
	for i, item := range m.current.Items {
		check := "[ ]"
		if m.sel.IsSelected(item.ID) {
			check = styles.CheckedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s %-12s %s", check, styles.ItemStatusIcon(item.Status),
			utils.TruncateWithEllipsis(item.ID, 12), utils.TruncateWithEllipsis(item.Name, nameWidth))
		if i == m.cursor {
			line = styles.CursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *PickerModel) statusLine() string {
	total := m.total()
	selected := m.sel.SelectedCount(total)
	mode := ""
	if m.sel.Mode() == domain.SelectionAllMatching {
		mode = " (all matching)"
	}
	return fmt.Sprintf("page %d/%d · %s selected%s · %d total",
		m.pageNum, m.source.PageCount(total), utils.Pluralize(selected, "item"), mode, total)
}

func describeFilter(f domain.Filter) string {
	var parts []string
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	if f.Status != "" {
		parts = append(parts, "status="+string(f.Status))
	}
	if f.Source != "" {
		parts = append(parts, "source="+string(f.Source))
	}
	return strings.Join(parts, " ")
}
