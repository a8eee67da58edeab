package version

import "fmt"

// Version is the assemble release. Set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/assemble/internal/version.Version=v0.2.0".
var Version = "unknown"

// Build metadata injected alongside Version.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `assemble version`.
func String() string {
	return fmt.Sprintf("assemble %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
