// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"fmt"
	"strings"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// Summarize renders a settled run, e.g. "Deleted 3 items", "Paused 48 items, 2 failed"
// or "Cancelled: deleted 10 of 100 items (0 failed)".
func Summarize(action domain.Action, status domain.JobStatus, result domain.ExecutionResult, total int) string {
	verb := action.PastTense()

	switch {
	case result.Cancelled || status == domain.JobCancelled:
		return fmt.Sprintf("Cancelled: %s %d of %s (%d failed)",
			strings.ToLower(verb[:1])+verb[1:], result.OK, pluralItems(total), result.Fail)
	case status == domain.JobFailed:
		return fmt.Sprintf("Bulk job failed: %s %d of %s (%d failed)",
			strings.ToLower(verb[:1])+verb[1:], result.OK, pluralItems(total), result.Fail)
	case result.Fail > 0:
		return fmt.Sprintf("%s %s, %d failed", verb, pluralItems(result.OK), result.Fail)
	default:
		return fmt.Sprintf("%s %s", verb, pluralItems(result.OK))
	}
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
