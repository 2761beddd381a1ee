// Package version centralizes the scanner's version metadata, including
// the values written into a snapshot's info table.
package version

import "runtime"

const (
	// Version is the scanner's own version, stored as info["cppscanner.version"].
	Version = "0.1.0"
)

var (
	// BuildDate is set at build time via -ldflags.
	BuildDate = "development"

	// GitCommit is set at build time via -ldflags.
	GitCommit = "unknown"
)

const (
	// SchemaVersion is the on-disk snapshot schema version, stored as
	// info["database.schema.version"]. Bump when a table/column changes
	// in a way that breaks SnapshotReader compatibility.
	SchemaVersion = "1"
)

// Info returns the scanner's version string.
func Info() string {
	return Version
}

// FullInfo returns a detailed, human-readable version string.
func FullInfo() string {
	return "cppscanner " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}

// OS returns the runtime OS identifier, stored as info["cppscanner.os"].
func OS() string {
	return runtime.GOOS
}
