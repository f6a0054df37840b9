// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/container"
	"github.com/bulkctl/bulkctl/internal/errors"
)

// app is the state shared by one command tree
type app struct {
	configFile string
	debug      bool

	cfg       *config.Config
	container *container.Container

	// isTerminal reports whether a command's input or output is a terminal
	isTerminal func(stream any) bool
}

func newApp() *app {
	return &app{isTerminal: isTerminalFile}
}

func isTerminalFile(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCommand builds a fresh command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bulkctl",
		Short: "bulkctl - apply one action to many items at once",
		Long: `bulkctl applies one action (delete, pause, resume, ...) to a selection of items:
an explicit list of ids, or every item matching a filter.

The work is delegated to a server-side bulk job when the server offers one, and
runs as concurrent per-item requests otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			return a.loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/bulkctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newApplyCommand(a))
	rootCmd.AddCommand(newJobCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))

	return rootCmd
}

// skipsConfig is true for commands that must work with a missing or broken config
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "version", "completion", "help":
			return true
		}
	}
	return false
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	a.cfg = cfg
	return nil
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.FormatUserError(err))

		if errors.IsAuthError(err) {
			fmt.Fprintf(os.Stderr, "\nHint: Run 'bulkctl config set api-key' or set %s to configure authentication\n", config.EnvAPIKey)
		} else if errors.IsResolutionError(err) {
			fmt.Fprintf(os.Stderr, "\nHint: Nothing was changed. Retry once the listing is reachable\n")
		} else if errors.IsNetworkError(err) {
			fmt.Fprintf(os.Stderr, "\nHint: Check that %s points at a reachable server\n", config.EnvAPIURL)
		}

		os.Exit(1)
	}
}
