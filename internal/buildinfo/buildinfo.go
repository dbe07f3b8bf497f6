package buildinfo

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the release tag of the client
	Version = "dev"
	// BuildID is a unique identifier for this build
	BuildID = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for `weed-client version`.
func String() string {
	return fmt.Sprintf("weed-client %s (build %s, %s)", Version, BuildID, BuildTime)
}
