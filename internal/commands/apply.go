// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bulkctl/bulkctl/internal/bulk"
	"github.com/bulkctl/bulkctl/internal/container"
	"github.com/bulkctl/bulkctl/internal/coordinator"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/selection"
	"github.com/bulkctl/bulkctl/internal/tui"
	"github.com/bulkctl/bulkctl/internal/tui/styles"
	"github.com/bulkctl/bulkctl/internal/utils"
)

const progressLineInterval = 500 * time.Millisecond

type applyOptions struct {
	filters     filterFlags
	all         bool
	exclude     []string
	file        string
	concurrency int
	yes         bool
	interactive bool
}

// plan is a resolved invocation: what to do and to which items
type plan struct {
	action    domain.Action
	selection domain.Selection
	total     int
}

func newApplyCommand(a *app) *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <action> [ids...]",
		Short: "Apply an action to many items",
		Long: `Apply an action to a selection of items.

Items are selected by listing their ids, by --all with optional filters and
exclusions, from a request file, or interactively with --interactive. Pass "-" as
the only id to read ids from stdin, one per line.

The action runs as a server-side bulk job when the server supports it and as
concurrent per-item requests otherwise. Ctrl-C once stops starting new work and
waits for in-flight requests; a second Ctrl-C aborts.`,
		Example: `  bulkctl apply delete item-1 item-2
  bulkctl apply pause --all --status active --exclude item-7
  bulkctl apply --file cleanup.yaml --yes
  cat ids.txt | bulkctl apply resume - --yes
  bulkctl apply delete --interactive --search backup`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, opts, args)
		},
	}

	opts.filters.register(cmd)
	cmd.Flags().BoolVar(&opts.all, "all", false, "select every item matching the filters")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "ids to leave out of --all (repeatable or comma-separated)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the request from a JSON, YAML, Markdown or id-list file")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "parallel requests when running locally (default from bulk.concurrency)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick items in a terminal UI")
	return cmd
}

func (a *app) runApply(cmd *cobra.Command, opts *applyOptions, args []string) error {
	p, err := a.planFromArgs(cmd, opts, args)
	if err != nil {
		return err
	}

	if err := requirePositive("concurrency", opts.concurrency); err != nil {
		return err
	}
	if opts.concurrency > 0 {
		a.cfg.Bulk.Concurrency = opts.concurrency
	}

	c, err := a.getContainer(cmd)
	if err != nil {
		return err
	}
	defer a.closeContainer()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.interactive {
		ok, err := a.pick(cmd, c, p)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted, nothing was changed.")
			return nil
		}
	}

	count, err := selectedCount(ctx, c, p)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(out, "No items match, nothing to do.")
		return nil
	}

	if !opts.yes {
		confirmed, err := a.confirm(cmd, p, count)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted, nothing was changed.")
			return nil
		}
	}

	var outcome *coordinator.Outcome
	if a.isTerminal(cmd.InOrStdin()) && a.isTerminal(out) {
		outcome, err = a.runWithProgressView(cmd, c.Coordinator(), p, count)
	} else {
		outcome, err = runWithProgressLines(cmd, c.Coordinator(), p)
	}
	if err != nil {
		return err
	}

	return outcomeError(outcome)
}

// planFromArgs turns arguments and flags into a plan. Interactive plans carry only
// the action and the initial filter.
func (a *app) planFromArgs(cmd *cobra.Command, opts *applyOptions, args []string) (*plan, error) {
	filter, err := opts.filters.filter()
	if err != nil {
		return nil, err
	}
	exclude := splitIDs(opts.exclude)

	var action domain.Action
	var ids []string
	if len(args) > 0 {
		action = domain.Action(args[0])
		ids = args[1:]
	}

	if opts.file != "" {
		if len(ids) > 0 || opts.all || opts.interactive || len(exclude) > 0 || opts.filters.isSet() {
			return nil, fmt.Errorf("--file cannot be combined with ids, --all, --exclude, filters or --interactive")
		}
		req, err := bulk.LoadRequest(opts.file)
		if err != nil {
			return nil, err
		}
		switch {
		case req.Action == "" && action == "":
			return nil, fmt.Errorf("%s has no action; pass one as the first argument", opts.file)
		case req.Action != "" && action != "" && domain.Action(req.Action) != action:
			return nil, fmt.Errorf("action %q conflicts with %q in %s", action, req.Action, opts.file)
		case action == "":
			action = domain.Action(req.Action)
		}
		return &plan{action: action, selection: req.Selection()}, nil
	}

	if action == "" {
		return nil, fmt.Errorf("an action is required, e.g. 'bulkctl apply delete item-1'")
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	if len(ids) == 1 && ids[0] == "-" {
		if ids, err = bulk.ReadIDs(cmd.InOrStdin()); err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no ids on stdin")
		}
	}

	switch {
	case opts.interactive:
		if len(ids) > 0 || opts.all || len(exclude) > 0 {
			return nil, fmt.Errorf("--interactive cannot be combined with ids, --all or --exclude")
		}
		if !a.isTerminal(cmd.InOrStdin()) || !a.isTerminal(cmd.OutOrStdout()) {
			return nil, fmt.Errorf("--interactive needs a terminal")
		}
		return &plan{action: action, selection: domain.AllMatchingSelection(filter)}, nil
	case opts.all && len(ids) > 0:
		return nil, fmt.Errorf("ids cannot be combined with --all")
	case !opts.all && len(exclude) > 0:
		return nil, fmt.Errorf("--exclude requires --all")
	case !opts.all && opts.filters.isSet():
		return nil, fmt.Errorf("--search, --status and --source require --all or --interactive")
	case !opts.all && len(ids) == 0:
		return nil, fmt.Errorf("no items given: pass ids, --all, --file or --interactive")
	case len(ids) > bulk.MaxExplicitIDs:
		return nil, fmt.Errorf("too many ids: %d (maximum %d); use --all with filters instead", len(ids), bulk.MaxExplicitIDs)
	}

	m := selection.New(filter)
	if opts.all {
		m.SelectAllMatching()
		for _, id := range exclude {
			if m.IsSelected(id) {
				m.Toggle(id)
			}
		}
	}
	for _, id := range ids {
		if !m.IsSelected(id) {
			m.Toggle(id)
		}
	}
	return &plan{action: action, selection: m.Snapshot()}, nil
}

// pick runs the item picker and stores its selection in p
func (a *app) pick(cmd *cobra.Command, c *container.Container, p *plan) (bool, error) {
	picker := tui.NewPickerModel(cmd.Context(), c.ListingService(), p.selection.Filter, p.action)
	program := tea.NewProgram(picker,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return false, fmt.Errorf("item picker failed: %w", err)
	}

	sel, total, ok := picker.Result()
	if !ok {
		return false, nil
	}
	p.selection = sel
	p.total = total
	return true, nil
}

// selectedCount is exact for explicit selections and uses the listing's reported
// total for "all matching" ones
func selectedCount(ctx context.Context, c *container.Container, p *plan) (int, error) {
	if !p.selection.IsAllMatching() {
		return len(p.selection.IDs), nil
	}
	if p.total == 0 {
		first, err := c.ListingService().Page(ctx, p.selection.Filter, 1)
		if err != nil {
			return 0, fmt.Errorf("failed to count matching items: %w", err)
		}
		p.total = first.Total
	}
	return p.selection.SelectedCount(p.total), nil
}

func (a *app) confirm(cmd *cobra.Command, p *plan, count int) (bool, error) {
	if !a.isTerminal(cmd.InOrStdin()) {
		return false, fmt.Errorf("refusing to %s %s without confirmation; pass --yes", p.action, utils.Pluralize(count, "item"))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimSpace(progressTitle(p.action, count)+" "+describeSelection(p.selection)))
	fmt.Fprint(out, "Continue? [y/N]: ")

	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (a *app) runWithProgressView(cmd *cobra.Command, coord *coordinator.Coordinator, p *plan, count int) (*coordinator.Outcome, error) {
	run := func(ctx context.Context, onProgress domain.ProgressCallback) (*coordinator.Outcome, error) {
		return coord.Run(ctx, coordinator.Request{Selection: p.selection, Action: p.action, OnProgress: onProgress})
	}
	model := tui.NewProgressModel(cmd.Context(), progressTitle(p.action, count), count, run, coord.Cancel)

	program := tea.NewProgram(model, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress view failed: %w", err)
	}
	return model.Outcome()
}

func runWithProgressLines(cmd *cobra.Command, coord *coordinator.Coordinator, p *plan) (*coordinator.Outcome, error) {
	ctx, stop := handleInterrupts(cmd.Context(), coord, cmd.ErrOrStderr())
	defer stop()

	lines := &progressLines{w: cmd.ErrOrStderr(), interval: progressLineInterval}
	outcome, err := coord.Run(ctx, coordinator.Request{
		Selection:  p.selection,
		Action:     p.action,
		OnProgress: lines.report,
	})
	if err != nil {
		return nil, err
	}

	printOutcome(cmd.OutOrStdout(), outcome)
	return outcome, nil
}

// handleInterrupts maps the first interrupt to a cooperative cancel and the second
// to aborting ctx
func handleInterrupts(ctx context.Context, coord interface{ Cancel() bool }, w io.Writer) (context.Context, func()) {
	ctx, abort := context.WithCancel(ctx)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		cancelled := false
		for {
			select {
			case <-signals:
				if !cancelled && coord.Cancel() {
					cancelled = true
					fmt.Fprintln(w, styles.WarningStyle.Render("Cancelling, waiting for in-flight requests (Ctrl-C again to abort)"))
					continue
				}
				abort()
				return
			case <-done:
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(signals)
		close(done)
		abort()
	}
}

// progressLines prints throttled progress for non-terminal output. Ticks arrive
// serialized from the coordinator.
type progressLines struct {
	w        io.Writer
	interval time.Duration
	last     time.Time
	printed  int
}

func (p *progressLines) report(job domain.BulkJob) {
	if job.IsTerminal() {
		return
	}
	processed := job.Processed()
	if processed == p.printed && !p.last.IsZero() {
		return
	}
	if now := time.Now(); p.last.IsZero() || processed == job.Total || now.Sub(p.last) >= p.interval {
		p.last = now
		p.printed = processed
		fmt.Fprintf(p.w, "%d/%d processed (%d failed)\n", processed, job.Total, job.Fail)
	}
}

func printOutcome(w io.Writer, outcome *coordinator.Outcome) {
	style := styles.SuccessStyle
	switch {
	case outcome.Final.Status == domain.JobFailed:
		style = styles.ErrorStyle
	case outcome.Result.Cancelled, outcome.Result.Fail > 0:
		style = styles.WarningStyle
	}
	fmt.Fprintln(w, style.Render(outcome.Summary()))
	if outcome.Path == domain.PathServerJob && outcome.Final.JobID != "" {
		fmt.Fprintln(w, styles.DimStyle.Render("server job "+outcome.Final.JobID))
	}
}

// outcomeError makes item failures and failed jobs a non-zero exit
func outcomeError(outcome *coordinator.Outcome) error {
	switch {
	case outcome.Final.Status == domain.JobFailed:
		return fmt.Errorf("bulk job %s failed", outcome.Final.JobID)
	case outcome.Result.Fail > 0:
		return fmt.Errorf("%s failed", utils.Pluralize(outcome.Result.Fail, "item"))
	}
	return nil
}

func progressTitle(action domain.Action, count int) string {
	var verb string
	switch action {
	case domain.ActionDelete:
		verb = "Deleting"
	case domain.ActionPause:
		verb = "Pausing"
	case domain.ActionResume:
		verb = "Resuming"
	default:
		return fmt.Sprintf("Applying %s to %s", action, utils.Pluralize(count, "item"))
	}
	return fmt.Sprintf("%s %s", verb, utils.Pluralize(count, "item"))
}

func describeSelection(sel domain.Selection) string {
	if !sel.IsAllMatching() {
		return ""
	}
	var parts []string
	if sel.Filter.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", sel.Filter.Search))
	}
	if sel.Filter.Status != "" {
		parts = append(parts, "status="+string(sel.Filter.Status))
	}
	if sel.Filter.Source != "" {
		parts = append(parts, "source="+string(sel.Filter.Source))
	}
	desc := "(every item"
	if len(parts) > 0 {
		desc += " matching " + strings.Join(parts, " ")
	}
	if n := len(sel.Excluded); n > 0 {
		desc += fmt.Sprintf(", %d excluded", n)
	}
	return desc + ")"
}
