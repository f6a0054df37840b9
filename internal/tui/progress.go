// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bulkctl/bulkctl/internal/coordinator"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/tui/styles"
	"github.com/bulkctl/bulkctl/internal/utils"
)

// RunFunc starts the bulk run and blocks until it settles, reporting every tick
type RunFunc func(ctx context.Context, onProgress domain.ProgressCallback) (*coordinator.Outcome, error)

type jobTickMsg domain.BulkJob

type runDoneMsg struct {
	outcome *coordinator.Outcome
	err     error
}

// ProgressModel shows a live bar for one bulk run. It quits by itself once the run
// settles; Outcome returns what happened.
type ProgressModel struct {
	ctx    context.Context
	abort  context.CancelFunc
	title  string
	run    RunFunc
	cancel func() bool

	ticks chan domain.BulkJob

	job        domain.BulkJob
	started    time.Time
	cancelling bool
	quitting   bool
	finished   bool
	outcome    *coordinator.Outcome
	err        error

	bar     progress.Model
	spinner spinner.Model
	help    help.Model
	keys    ProgressKeyMap
}

// NewProgressModel wires a run to the view. cancel requests cooperative
// cancellation and reports whether a run was active.
func NewProgressModel(ctx context.Context, title string, total int, run RunFunc, cancel func() bool) *ProgressModel {
	ctx, abort := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	return &ProgressModel{
		ctx:     ctx,
		abort:   abort,
		title:   title,
		run:     run,
		cancel:  cancel,
		ticks:   make(chan domain.BulkJob, 64),
		job:     domain.BulkJob{Total: total, Status: domain.JobRunning},
		started: time.Now(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner: s,
		help:    help.New(),
		keys:    DefaultProgressKeyMap,
	}
}

func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), m.waitForTick())
}

func (m *ProgressModel) startRun() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.run(m.ctx, func(job domain.BulkJob) {
			// drop ticks while the view is behind
			select {
			case m.ticks <- job:
			default:
			}
		})
		return runDoneMsg{outcome: outcome, err: err}
	}
}

func (m *ProgressModel) waitForTick() tea.Cmd {
	return func() tea.Msg {
		select {
		case job := <-m.ticks:
			return jobTickMsg(job)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case jobTickMsg:
		if m.finished {
			return m, nil
		}
		m.job = domain.BulkJob(msg)
		return m, tea.Batch(m.bar.SetPercent(utils.ProgressFraction(m.job.Processed(), m.job.Total)), m.waitForTick())

	case runDoneMsg:
		m.finished = true
		m.outcome = msg.outcome
		m.err = msg.err
		if msg.outcome != nil {
			m.job = msg.outcome.Final
		}
		m.abort()
		return m, tea.Quit

	case progress.FrameMsg:
		model, cmd := m.bar.Update(msg)
		m.bar = model.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ProgressModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.finished {
		return tea.Quit
	}
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.requestCancel()
	case key.Matches(msg, m.keys.Quit):
		if m.quitting {
			// second quit gives up on waiting for the run to settle
			m.abort()
			return tea.Quit
		}
		m.quitting = true
		m.requestCancel()
	}
	return nil
}

func (m *ProgressModel) requestCancel() {
	if m.cancelling {
		return
	}
	m.cancelling = m.cancel()
}

// Outcome returns the settled run, or the error that stopped it
func (m *ProgressModel) Outcome() (*coordinator.Outcome, error) {
	if !m.finished {
		return nil, context.Canceled
	}
	return m.outcome, m.err
}

func (m *ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.finished {
		b.WriteString(m.renderSettled())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.bar.View())
	b.WriteString("\n\n")

	counts := fmt.Sprintf("%d/%d processed · %s · %s",
		m.job.Processed(), m.job.Total,
		styles.SuccessStyle.Render(fmt.Sprintf("%d ok", m.job.Done)),
		styles.ErrorStyle.Render(fmt.Sprintf("%d failed", m.job.Fail)),
	)
	b.WriteString(counts)
	b.WriteString(styles.DimStyle.Render("  " + utils.FormatDuration(time.Since(m.started))))
	b.WriteString("\n")

	if m.cancelling {
		b.WriteString(styles.WarningStyle.Render("Cancelling… waiting for in-flight items"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *ProgressModel) renderSettled() string {
	if m.err != nil {
		return styles.ErrorStyle.Render("✗ " + m.err.Error())
	}
	if m.outcome == nil {
		return ""
	}
	style := styles.JobStatusStyle(m.outcome.Final.Status)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		style.Render(m.outcome.Summary()),
		styles.DimStyle.Render(fmt.Sprintf("  (%s)", m.outcome.Path)),
	)
}
