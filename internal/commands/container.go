// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/bulkctl/bulkctl/internal/config"
	"github.com/bulkctl/bulkctl/internal/container"
	"github.com/bulkctl/bulkctl/internal/errors"
)

// getContainer returns the application container, creating it on first use.
// Flag overrides of a.cfg must happen before the first call.
func (a *app) getContainer(cmd *cobra.Command) (*container.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	if a.cfg == nil {
		if err := a.loadConfig(); err != nil {
			return nil, err
		}
	}

	apiKey, err := config.NewKeyStore(a.configFile).Get()
	if err != nil {
		if stderrors.Is(err, config.ErrAPIKeyNotFound) {
			return nil, errors.ErrNoAPIKey
		}
		return nil, err
	}
	a.cfg.APIKey = apiKey

	a.container = container.NewContainer(a.cfg, container.WithLogOutput(cmd.ErrOrStderr()))
	return a.container, nil
}

// closeContainer stops the container's background work
func (a *app) closeContainer() {
	if a.container != nil {
		a.container.Close()
		a.container = nil
	}
}
