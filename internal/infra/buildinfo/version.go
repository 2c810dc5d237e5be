package buildinfo

import "runtime"

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version of this build.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info describes the running build. Served by the version command and
// the diagnostics health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a one-line version summary.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
