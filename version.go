package kirimgo

import (
	"fmt"
	"runtime"
)

// Build-time identity, injected via -ldflags. Defaults cover source builds.
var (
	version   = "v0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// VersionInfo describes the build of the library in use.
type VersionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// GetVersionInfo returns the build identity of the library.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}
}

// GetVersion returns a human-readable one-line version string.
func GetVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("Kirimgo %s (commit: %s, built: %s, go: %s)",
		info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
}

// String implements fmt.Stringer.
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s+%s", v.Version, v.GitCommit)
}
