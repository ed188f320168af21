// Package version describes the exposed build: its version, the VCS state it was built from and the compilers and
// platforms it works with.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/crytic/exposed/compilation"
	"github.com/crytic/exposed/exposure"
)

// Build variables, which may be set with -ldflags. Unset VCS variables are read from the embedded build info.
var (
	// Version is the semantic version of the build.
	Version = "0.3.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
	// GitCommitTime is the RFC 3339 timestamp of the git commit.
	GitCommitTime = ""
	// GitTreeDirty is "true" if the tree had uncommitted changes.
	GitTreeDirty = ""
)

// Info describes a build.
type Info struct {
	Version       string
	GitCommit     string
	GitCommitTime string
	GitTreeDirty  bool
	GoVersion     string

	// MinimumSolcVersion is the lowest compiler version generated sources are written for.
	MinimumSolcVersion string

	// Platforms are the supported compilation platforms.
	Platforms []string
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	for variable, key := range map[*string]string{
		&GitCommit:     "vcs.revision",
		&GitCommitTime: "vcs.time",
		&GitTreeDirty:  "vcs.modified",
	} {
		if *variable == "" {
			*variable = settings[key]
		}
	}
}

// GetInfo returns the information of the running build.
func GetInfo() Info {
	return Info{
		Version:            Version,
		GitCommit:          GitCommit,
		GitCommitTime:      GitCommitTime,
		GitTreeDirty:       GitTreeDirty == "true",
		GoVersion:          runtime.Version(),
		MinimumSolcVersion: exposure.MinimumCompilerVersion.String(),
		Platforms:          compilation.GetSupportedCompilationPlatforms(),
	}
}

// ShortCommit returns the abbreviated commit hash.
func (i Info) ShortCommit() string {
	if len(i.GitCommit) >= 7 {
		return i.GitCommit[:7]
	}
	return i.GitCommit
}

// commit returns the abbreviated commit hash, marked if the tree was dirty.
func (i Info) commit() string {
	if i.GitTreeDirty {
		return i.ShortCommit() + "-dirty"
	}
	return i.ShortCommit()
}

// FormattedTime returns the commit time in a human-readable format.
func (i Info) FormattedTime() string {
	if i.GitCommitTime == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, i.GitCommitTime)
	if err != nil {
		return i.GitCommitTime
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// String returns the version followed by one labelled line per known build detail.
func (i Info) String() string {
	rows := [][2]string{}
	if i.GitCommit != "" {
		rows = append(rows, [2]string{"Commit", i.commit()})
	}
	if i.GitCommitTime != "" {
		rows = append(rows, [2]string{"Built", i.FormattedTime()})
	}
	rows = append(rows, [2]string{"Go version", i.GoVersion})
	rows = append(rows, [2]string{"Solidity", ">=" + i.MinimumSolcVersion})
	if len(i.Platforms) > 0 {
		rows = append(rows, [2]string{"Platforms", strings.Join(i.Platforms, ", ")})
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("exposed version %s\n", i.Version))
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %-11s %s\n", row[0]+":", row[1]))
	}
	return sb.String()
}

// Short returns the single-line version used by --version.
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	return i.Version + "+" + i.commit()
}
