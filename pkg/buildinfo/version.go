// Package buildinfo reports the version of the running binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/microsim/cosem/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/microsim/cosem/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/microsim/cosem/pkg/buildinfo.Date=$(date -u +%Y-%m-%d)"
//
// Binaries built with "go install" fall back to the module version and VCS
// settings recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fill sync.Once

// resolve fills unset variables from the embedded build information.
func resolve() {
	fill.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// String returns version, commit and build date on separate lines.
func String() string {
	resolve()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template is the cobra version template.
func Template() string {
	resolve()
	return "{{.Name}} " + Version + " (" + Commit + ", " + Date + ")\n"
}

// UserAgent is sent to the catalog and storage hosts.
func UserAgent() string {
	resolve()
	return "cosem/" + Version
}
