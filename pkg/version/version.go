// Package version reports build identity for the goflowdl CLI: a
// release version string overridable at link time, plus whatever Go's
// module build info can recover at runtime.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// AppName is the CLI's display name.
const AppName = "goflowdl"

// Version is the released version string. Override at build time with:
//
//	go build -ldflags "-X github.com/beyondcivic/goflowdl/pkg/version.Version=1.2.3"
var Version = "dev"

// GitCommit is the commit this binary was built from, set the same way as
// Version.
var GitCommit = ""

// Stamp summarises a binary's build identity for display in `goflowdl
// version`.
type Stamp struct {
	Version    string
	GitCommit  string
	GoVersion  string
	GOOS       string
	GOARCH     string
	ModulePath string
}

// RetrieveStamp assembles a Stamp from the linker-set vars above and
// whatever runtime/debug.ReadBuildInfo can recover about the module that
// produced this binary.
func RetrieveStamp() Stamp {
	s := Stamp{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return s
	}
	s.ModulePath = info.Main.Path
	if s.GitCommit == "" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				s.GitCommit = setting.Value
			}
		}
	}
	return s
}

func (s Stamp) String() string {
	commit := s.GitCommit
	if commit == "" {
		commit = "unknown"
	}
	return fmt.Sprintf("%s (%s) built with %s for %s/%s", s.Version, commit, s.GoVersion, s.GOOS, s.GOARCH)
}
