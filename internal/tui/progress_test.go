// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/coordinator"
	"github.com/bulkctl/bulkctl/internal/domain"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func settledOutcome() *coordinator.Outcome {
	return &coordinator.Outcome{
		Path:   domain.PathLocal,
		Action: domain.ActionPause,
		Result: domain.ExecutionResult{OK: 48, Fail: 2},
		Final:  domain.BulkJob{Total: 50, Done: 48, Fail: 2, Status: domain.JobCompleted},
	}
}

func TestProgressModel_RunsAndSettles(t *testing.T) {
	run := func(ctx context.Context, onProgress domain.ProgressCallback) (*coordinator.Outcome, error) {
		onProgress(domain.BulkJob{Total: 50, Done: 10, Status: domain.JobRunning})
		return settledOutcome(), nil
	}
	m := NewProgressModel(context.Background(), "Pausing 50 items", 50, run, func() bool { return true })

	done := m.startRun()()
	require.IsType(t, runDoneMsg{}, done)

	tick := m.waitForTick()()
	require.IsType(t, jobTickMsg{}, tick)

	_, cmd := m.Update(tick)
	assert.NotNil(t, cmd)
	assert.Equal(t, 10, m.job.Done)
	assert.Contains(t, m.View(), "10/50 processed")

	_, cmd = m.Update(done)
	assert.True(t, isQuit(cmd))

	outcome, err := m.Outcome()
	require.NoError(t, err)
	assert.Equal(t, "Paused 48 items, 2 failed", outcome.Summary())
	assert.Contains(t, m.View(), "Paused 48 items, 2 failed")
}

func TestProgressModel_CancelKey(t *testing.T) {
	var cancels int
	m := NewProgressModel(context.Background(), "t", 10, nil, func() bool {
		cancels++
		return true
	})

	_, cmd := m.Update(keyMsg("c"))
	assert.Nil(t, cmd)
	_, _ = m.Update(keyMsg("c"))

	assert.Equal(t, 1, cancels, "cancel is requested once")
	assert.True(t, m.cancelling)
	assert.Contains(t, m.View(), "Cancelling")
}

func TestProgressModel_QuitWaitsThenForces(t *testing.T) {
	var cancels int
	m := NewProgressModel(context.Background(), "t", 10, nil, func() bool {
		cancels++
		return true
	})

	_, cmd := m.Update(keyMsg("q"))
	assert.False(t, isQuit(cmd), "first quit waits for the run to settle")
	assert.Equal(t, 1, cancels)

	_, cmd = m.Update(keyMsg("ctrl+c"))
	assert.True(t, isQuit(cmd))
	assert.Error(t, m.ctx.Err(), "forced quit aborts the run context")

	_, err := m.Outcome()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressModel_RunError(t *testing.T) {
	m := NewProgressModel(context.Background(), "t", 0, nil, func() bool { return false })

	_, cmd := m.Update(runDoneMsg{err: errors.New("start bulk job: boom")})
	assert.True(t, isQuit(cmd))

	_, err := m.Outcome()
	assert.EqualError(t, err, "start bulk job: boom")
	assert.Contains(t, m.View(), "boom")
}

func TestProgressModel_LateTickIgnored(t *testing.T) {
	m := NewProgressModel(context.Background(), "t", 50, nil, func() bool { return false })
	_, _ = m.Update(runDoneMsg{outcome: settledOutcome()})

	_, cmd := m.Update(jobTickMsg(domain.BulkJob{Total: 50, Done: 1, Status: domain.JobRunning}))
	assert.Nil(t, cmd)
	assert.Equal(t, domain.JobCompleted, m.job.Status)
}
