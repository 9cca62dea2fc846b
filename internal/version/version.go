// Package version carries build-time version metadata, injected via -ldflags.
package version

import "fmt"

var (
	// Version is the current pipeline version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line human-readable version banner.
func String() string {
	return fmt.Sprintf("trackmate-pipeline %s (%s, built %s)", Version, GitSHA, BuildTime)
}
