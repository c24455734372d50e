// Package buildinfo reports the chaos version from linker flags or Go
// build metadata.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// version is set at release time with
// -ldflags "-X github.com/chaosctl/chaos/internal/buildinfo.version=v1.2.3".
var version string

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	Modified  bool
	GoVersion string
	Platform  string
}

// String renders Info for `chaos version`.
func (i Info) String() string {
	s := fmt.Sprintf("chaos %s (%s, %s)", i.Version, i.GoVersion, i.Platform)
	if i.Commit != "" {
		s += "\ncommit " + i.Commit
		if i.Modified {
			s += " (modified)"
		}
	}
	return s
}

// Read collects Info for the current process.
func Read() Info {
	info := Info{
		Version:   "unknown",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := readBuildInfo()
	if ok {
		info.Commit, info.Modified = vcs(bi)
	}
	switch {
	case version != "":
		info.Version = version
	case ok && bi.Main.Version != "" && bi.Main.Version != "(devel)":
		info.Version = bi.Main.Version
	case ok:
		info.Version = devVersion(info.Commit, info.Modified)
	}
	return info
}

// Version returns the version string: the linker-provided release,
// the module version for `go install`, or "dev-<hash>[-dirty]".
func Version() string {
	return Read().Version
}

func vcs(bi *debug.BuildInfo) (revision string, modified bool) {
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified
}

func devVersion(revision string, modified bool) string {
	if revision == "" {
		return "dev"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "dev-" + revision
	if modified {
		v += "-dirty"
	}
	return v
}
