// Package version provides build version information.
package version

import (
	"runtime"
)

// Overridden at build time with -ldflags "-X github.com/coral-mesh/skprof/pkg/version.Version=...".
var (
	Version = "dev"

	GitCommit = "unknown"

	BuildDate = "unknown"

	GoVersion = runtime.Version()
)
