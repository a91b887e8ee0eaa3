// Package version carries build metadata stamped in by -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `recite version`.
func String() string {
	return fmt.Sprintf("recite %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent identifies recite in outbound HTTP requests.
func UserAgent() string {
	return "recite/" + Version
}
