// Package version holds build information injected with -ldflags.
package version

import (
	"fmt"
	"runtime"

	"github.com/aatumaykin/pollbot/internal/constants"
)

var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// Info is the build information in structured form.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// SetInfo overrides the non-empty values.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// Get returns the current build information. An unset Go version falls
// back to the running toolchain.
func Get() Info {
	gv := GoVersion
	if gv == constants.DefaultGoVersion {
		gv = runtime.Version()
	}
	return Info{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit, GoVersion: gv}
}

func (i Info) String() string {
	return fmt.Sprintf("pollbot %s (commit %s, built %s, %s)", i.Version, i.GitCommit, i.BuildTime, i.GoVersion)
}

// FormatStartupMessage returns the log line printed on startup.
func FormatStartupMessage() string {
	return fmt.Sprintf("📱 Pollbot запущен\nВерсия: %s\nСборка: %s", Version, BuildTime)
}
