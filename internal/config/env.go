// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

// Environment variable constants
const (
	// EnvPrefix is prepended to every config key when read from the environment,
	// with dots replaced by underscores (bulk.concurrency -> BULKCTL_BULK_CONCURRENCY)
	EnvPrefix = "BULKCTL"

	// EnvAPIKey is the environment variable for the API key
	EnvAPIKey = "BULKCTL_API_KEY"

	// EnvAPIURL is the environment variable for the API base URL
	EnvAPIURL = "BULKCTL_API_URL"

	// EnvDebug is the environment variable for debug logging
	EnvDebug = "BULKCTL_DEBUG"
)
