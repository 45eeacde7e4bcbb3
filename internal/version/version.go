// Package version reports nescore build information
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time via -ldflags "-X nescore/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo merges the ldflags values with the VCS stamp of the binary
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// ShortCommit returns the first seven characters of the commit
func (b BuildInfo) ShortCommit() string {
	if len(b.GitCommit) > 7 {
		return b.GitCommit[:7]
	}
	return b.GitCommit
}

// GetVersion returns a simple version string
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info := GetBuildInfo(); info.GitCommit != "unknown" {
		return "dev-" + info.ShortCommit()
	}
	return Version
}

// GetDetailedVersion returns a one-line version string
func GetDetailedVersion() string {
	info := GetBuildInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "nescore version %s", GetVersion())
	if info.GitCommit != "unknown" {
		fmt.Fprintf(&b, " (commit %s", info.ShortCommit())
		if info.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	if info.BuildTime != "unknown" {
		when := info.BuildTime
		if t, err := time.Parse(time.RFC3339, when); err == nil {
			when = t.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, " built on %s", when)
	}
	fmt.Fprintf(&b, " with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)
	return b.String()
}

// PrintBuildInfo writes the build information table
func PrintBuildInfo(w io.Writer) {
	info := GetBuildInfo()

	fmt.Fprintf(w, "nescore - 6502 execution core\n")
	fmt.Fprintf(w, "Version:     %s\n", GetVersion())
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
}
