// Package version holds build metadata for rulelabel.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version   string // Set via ldflags.
	Branch    string
	BuildUser string
	BuildDate string

	Revision  = getRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns [Version] if it was set at build time, or the VCS
// revision otherwise.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String returns a one-line description of the build, e.g.
// "v0.3.0 (abc1234, go1.25.0 linux/amd64)".
func String() string {
	return GetVersion() + " (" + Revision + ", " + GoVersion + " " + GoOS + "/" + GoArch + ")"
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}

		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
