package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime, GoVersion: runtime.Version()}
}

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, BuildTime, runtime.Version())
}
