// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package utils

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TruncateWithEllipsis shortens s to maxWidth terminal cells, counting display width
// rather than bytes. Only the first line of s is kept.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if first, _, found := strings.Cut(s, "\n"); found {
		s = first
	}
	s = strings.ReplaceAll(s, "\t", " ")

	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", max(maxWidth, 0))
	}

	runes := []rune(s)
	for i := len(runes) - 1; i > 0; i-- {
		truncated := string(runes[:i]) + "..."
		if lipgloss.Width(truncated) <= maxWidth {
			return truncated
		}
	}
	return "..."
}
