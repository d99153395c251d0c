package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X crossbot/src/version.Version=...".
var (
	Commit         = "unknown"
	Version        = "unknown"
	BuildTimestamp = "unknown"
)

func GetBuildInfo() map[string]string {
	data := make(map[string]string, 0)

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			data[s.Key] = s.Value
		}
		data["go_version"] = bi.GoVersion
	}

	data["commit"] = Commit
	data["version"] = Version
	data["build_timestamp"] = BuildTimestamp

	return data
}

func Summary() string {
	return fmt.Sprintf("crossbot %s (commit %s, built %s)", Version, Commit, BuildTimestamp)
}
