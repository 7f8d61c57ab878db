// Package version holds build metadata, populated via -ldflags at release.
package version

var (
	// Version is the semantic version of this build.
	Version = "dev"

	// Commit is the git commit hash of this build.
	Commit = ""

	// BuildDate is the RFC3339 build timestamp.
	BuildDate = ""
)
