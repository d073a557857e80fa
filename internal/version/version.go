// Package version carries build identification, injected at link time
// via -ldflags.
package version

// Build identification (set at build time).
var (
	// Version is the release version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
