package version

import (
	"fmt"
	"runtime/debug"
)

// These variables are set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string. Binaries installed with
// `go install` report the module version instead of "dev".
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

// GetFullVersion returns a full version string with commit and date
func GetFullVersion() string {
	v := GetVersion()
	if GitCommit == "unknown" && BuildDate == "unknown" {
		return v
	}
	return fmt.Sprintf("%s (commit %s, built %s)", v, GitCommit, BuildDate)
}
