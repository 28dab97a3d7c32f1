// Package buildinfo contains application metadata that can be set at build time.
//
// For release builds, use ldflags to set the version:
//
//	go build -ldflags "-X github.com/dotside-studios/davi-uhf-agent/buildinfo.Version=1.0.0"
//
// Or set multiple values:
//
//	go build -ldflags "\
//	  -X github.com/dotside-studios/davi-uhf-agent/buildinfo.Version=1.0.0 \
//	  -X github.com/dotside-studios/davi-uhf-agent/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
	"strings"
)

// Application metadata, overridable via ldflags.
var (
	Name        = "davi-uhf-agent"
	DirName     = "davi-uhf-agent"
	DisplayName = "Davi UHF Agent"
	Description = "UHF RFID reader bridge with WebSocket command and status channels"

	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// FullVersion returns the version with the commit appended when known,
// e.g. "1.0.0 (abc1234)".
func FullVersion() string {
	if Commit != "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return Version
}

// UserAgent returns "davi-uhf-agent/<version>".
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, Version)
}

// BuildInfo returns a multi-line summary for --version output.
func BuildInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Name, FullVersion())
	fmt.Fprintf(&sb, "  %s\n", Description)
	fmt.Fprintf(&sb, "  Go: %s\n", runtime.Version())
	fmt.Fprintf(&sb, "  OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(&sb, "\n  Built: %s", BuildTime)
	}
	return sb.String()
}

// IsDev reports whether this is an unversioned development build.
func IsDev() bool {
	return Version == "dev"
}
