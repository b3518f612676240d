// Package version reports build information for the server and the CLI.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// These are set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info contains version and build information
type Info struct {
	Version     string `json:"version"`
	BuildTime   string `json:"buildTime"`
	GoVersion   string `json:"goVersion"`
	VCSRevision string `json:"vcsRevision,omitempty"`
	VCSTime     string `json:"vcsTime,omitempty"`
	VCSModified bool   `json:"vcsModified"`
}

// Get returns the current version and build information
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = buildInfo.GoVersion
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				info.VCSRevision = setting.Value
			case "vcs.time":
				info.VCSTime = setting.Value
			case "vcs.modified":
				info.VCSModified = setting.Value == "true"
			}
		}
	}
	return info
}

// Revision is the short commit hash, marked when the tree was dirty
func (i Info) Revision() string {
	rev := i.VCSRevision
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if rev != "" && i.VCSModified {
		rev += "+dirty"
	}
	return rev
}

// String is the one-line form printed at startup and by payoff --version
func (i Info) String() string {
	parts := []string{i.Version}
	if rev := i.Revision(); rev != "" {
		parts = append(parts, "commit "+rev)
	}
	if i.BuildTime != "unknown" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	return strings.Join(parts, ", ")
}

// Check returns a warning for builds that cannot be traced to a commit
func (i Info) Check() string {
	switch {
	case i.VCSModified:
		return "WARNING: built from a modified source tree"
	case i.VCSRevision == "" && i.Version == "dev":
		return fmt.Sprintf("WARNING: development build with no version control information (%s)", i.GoVersion)
	}
	return ""
}
