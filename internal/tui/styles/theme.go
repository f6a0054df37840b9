// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bulkctl/bulkctl/internal/domain"
)

var (
	BaseStyle = lipgloss.NewStyle()

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	CursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("63"))

	CheckedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	ProcessingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// JobStatusStyle colors a bulk job status
func JobStatusStyle(status domain.JobStatus) lipgloss.Style {
	switch status {
	case domain.JobCompleted:
		return SuccessStyle
	case domain.JobFailed:
		return ErrorStyle
	case domain.JobCancelled:
		return WarningStyle
	case domain.JobRunning:
		return ProcessingStyle
	default:
		return BaseStyle
	}
}

// ItemStatusIcon returns the glyph shown next to an item in the listing
func ItemStatusIcon(status domain.ItemStatus) string {
	switch status {
	case domain.ItemStatusActive:
		return "●"
	case domain.ItemStatusPaused:
		return "⏸"
	case domain.ItemStatusFailed:
		return "✗"
	case domain.ItemStatusCompleted:
		return "✓"
	default:
		return "•"
	}
}
