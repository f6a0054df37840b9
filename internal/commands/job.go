// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
	"github.com/bulkctl/bulkctl/internal/tui/styles"
)

func newJobCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect or cancel server-side bulk jobs",
	}
	cmd.AddCommand(newJobStatusCommand(a), newJobWatchCommand(a), newJobCancelCommand(a))
	return cmd
}

func newJobStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current state of a bulk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.getContainer(cmd)
			if err != nil {
				return err
			}
			defer a.closeContainer()

			job, err := c.Jobs().Status(cmd.Context(), args[0])
			if err != nil {
				return jobError("failed to get job status", args[0], err)
			}
			printJob(cmd.OutOrStdout(), *job)
			return nil
		},
	}
}

func newJobWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a bulk job until it settles",
		Long: `Follow a bulk job until it settles, over the job's event stream when the
server offers one and by polling otherwise. Ctrl-C stops watching; the job keeps
running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.getContainer(cmd)
			if err != nil {
				return err
			}
			defer a.closeContainer()

			jobs := c.Jobs()
			current, err := jobs.Status(cmd.Context(), args[0])
			if err != nil {
				return jobError("failed to get job status", args[0], err)
			}
			if current.IsTerminal() {
				printJob(cmd.OutOrStdout(), *current)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lines := &progressLines{w: cmd.ErrOrStderr(), interval: progressLineInterval}
			handle := domain.JobHandle{JobID: args[0], Total: current.Total}
			final, err := jobs.Run(ctx, handle, func() bool { return false }, lines.report)
			if err != nil {
				if ctx.Err() != nil && cmd.Context().Err() == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Stopped watching; job %s keeps running\n", handle.JobID)
					return nil
				}
				return fmt.Errorf("failed to follow job: %w", err)
			}
			printJob(cmd.OutOrStdout(), final)
			if final.Status == domain.JobFailed {
				return fmt.Errorf("bulk job %s failed", final.JobID)
			}
			return nil
		},
	}
}

func newJobCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Ask the server to stop a bulk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.getContainer(cmd)
			if err != nil {
				return err
			}
			defer a.closeContainer()

			if err := c.APIClient().CancelBulkJob(cmd.Context(), args[0]); err != nil {
				return jobError("failed to cancel job", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
			return nil
		},
	}
}

func jobError(op, jobID string, err error) error {
	if errors.IsNotFound(err) {
		return fmt.Errorf("%s: no job with id %s", op, jobID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func printJob(w io.Writer, job domain.BulkJob) {
	fmt.Fprintf(w, "Job:       %s\n", job.JobID)
	fmt.Fprintf(w, "Status:    %s\n", styles.JobStatusStyle(job.Status).Render(string(job.Status)))
	fmt.Fprintf(w, "Processed: %d/%d\n", job.Processed(), job.Total)
	fmt.Fprintf(w, "Done:      %d\n", job.Done)
	fmt.Fprintf(w, "Failed:    %d\n", job.Fail)
}
