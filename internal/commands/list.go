// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bulkctl/bulkctl/internal/tui/styles"
	"github.com/bulkctl/bulkctl/internal/utils"
)

func newListCommand(a *app) *cobra.Command {
	var (
		filters  filterFlags
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items matching a filter",
		Example: `  bulkctl list --status paused
  bulkctl list --search backup --page 2 --page-size 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}
			if err := requirePositive("page-size", pageSize); err != nil {
				return err
			}
			if pageSize > 0 {
				a.cfg.Listing.PageSize = pageSize
			}

			c, err := a.getContainer(cmd)
			if err != nil {
				return err
			}
			defer a.closeContainer()

			listing := c.ListingService()
			result, err := listing.Page(cmd.Context(), filter, page)
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(result.Items) == 0 {
				fmt.Fprintln(out, styles.DimStyle.Render("No items match."))
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tSOURCE\tNAME")
				for _, item := range result.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.ID, item.Status, item.Source, utils.TruncateWithEllipsis(item.Name, 60))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "\nPage %d/%d · %s total\n", page, listing.PageCount(result.Total), utils.Pluralize(result.Total, "item"))
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "items per page (default from listing.page_size)")
	return cmd
}
