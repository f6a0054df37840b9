// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// filterFlags are the listing filter flags shared by list and apply
type filterFlags struct {
	search string
	status string
	source string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "free-text search")
	cmd.Flags().StringVar(&f.status, "status", "", "filter by status (active, paused, failed, completed)")
	cmd.Flags().StringVar(&f.source, "source", "", "filter by source (manual, scheduled, api)")
}

func (f *filterFlags) filter() (domain.Filter, error) {
	filter := domain.Filter{
		Search: strings.TrimSpace(f.search),
		Status: domain.ItemStatus(strings.ToLower(f.status)),
		Source: domain.ItemSource(strings.ToLower(f.source)),
	}
	if err := filter.Validate(); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

func (f *filterFlags) isSet() bool {
	return f.search != "" || f.status != "" || f.source != ""
}

// splitIDs accepts repeated and comma-separated ids
func splitIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func requirePositive(name string, v int) error {
	if v < 0 {
		return fmt.Errorf("--%s must be positive, got %d", name, v)
	}
	return nil
}
