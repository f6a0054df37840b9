// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/utils"
)

const configKeyAPIKey = "api_key"

func isAPIKey(key string) bool {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_") == configKeyAPIKey
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bulkctl configuration",
		Long: fmt.Sprintf(`Manage bulkctl configuration.

Settings live in a YAML file and can be overridden with %s_* environment
variables, e.g. %s. The API key is kept in the system keyring when one is
available.

Keys: %s`, config.EnvPrefix, config.EnvAPIURL, strings.Join(config.Keys(), ", ")),
	}

	cmd.AddCommand(
		newConfigSetCommand(a),
		newConfigGetCommand(a),
		newConfigListCommand(a),
		newConfigPathCommand(a),
		newConfigClearKeyCommand(a),
	)
	return cmd
}

func newConfigSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Set a configuration value",
		Long: `Set a configuration value. For api-key the value may be omitted, in which
case it is read from the terminal without echo (or from stdin when piped).`,
		Example: `  bulkctl config set api-url https://items.example.com
  bulkctl config set bulk.concurrency 16
  bulkctl config set api-key`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !isAPIKey(key) {
				if len(args) != 2 {
					return fmt.Errorf("a value is required for %s", key)
				}
				if err := config.SetValue(a.configFile, key, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", key, args[1])
				return nil
			}

			var apiKey string
			if len(args) == 2 {
				apiKey = args[1]
			} else {
				var err error
				if apiKey, err = a.readSecret(cmd, "Enter your API key: "); err != nil {
					return err
				}
			}
			apiKey = strings.TrimSpace(apiKey)
			if err := utils.ValidateAPIKeyFormat(apiKey); err != nil {
				return err
			}

			where, err := config.NewKeyStore(a.configFile).Save(apiKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s stored in %s\n", utils.MaskAPIKey(apiKey), where)
			return nil
		},
	}
}

// readSecret reads one line without echo from a terminal, or plainly otherwise
func (a *app) readSecret(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && a.isTerminal(f) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return line, nil
}

func newConfigGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.configValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every configuration key and its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, key := range config.Keys() {
				value, err := a.configValue(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			}
			return nil
		},
	}
}

// configValue returns the value to display; the API key is always masked
func (a *app) configValue(key string) (string, error) {
	if !isAPIKey(key) {
		return config.GetValue(a.configFile, key)
	}
	apiKey, err := config.NewKeyStore(a.configFile).Get()
	if stderrors.Is(err, config.ErrAPIKeyNotFound) {
		return "(not set)", nil
	}
	if err != nil {
		return "", err
	}
	return utils.MaskAPIKey(apiKey), nil
}

func newConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			path := a.configFile
			if path == "" {
				path = config.DefaultFile()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}

func newConfigClearKeyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-key",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.NewKeyStore(a.configFile).Delete(); err != nil {
				return fmt.Errorf("failed to remove API key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			if os.Getenv(config.EnvAPIKey) != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is still set in the environment\n", config.EnvAPIKey)
			}
			return nil
		},
	}
}
