// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/bulkctl/bulkctl/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const productName = "bulkctl"

func GetVersion() string {
	return Version
}

// UserAgent is sent on every API request
func UserAgent() string {
	return fmt.Sprintf("%s/%s", productName, Version)
}

func GetBuildInfo() string {
	return fmt.Sprintf("%s %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s/%s",
		productName,
		Version,
		GitCommit,
		BuildDate,
		runtime.Version(),
		runtime.GOOS,
		runtime.GOARCH,
	)
}
