// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Build metadata. Release builds set these with
// -ldflags "-X github.com/Sumatoshi-tech/stackzip/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset metadata from the Go build info, so that
// `go install` builds still report a module version and VCS revision.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for `stackzip version`.
func String() string {
	return fmt.Sprintf("stackzip %s (commit: %s, built: %s)", Version, Commit, Date)
}
