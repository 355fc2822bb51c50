// Package buildinfo holds the version stamped into the yiyin binary.
//
// The variables are set with ldflags at release time:
//
//	go build -ldflags "-X github.com/yiyinbot/yiyin/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/yiyinbot/yiyin/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/yiyinbot/yiyin/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/yiyin
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the build information on three lines.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, Commit, Date)
}

// UserAgent identifies the bot to upstream HTTP services.
func UserAgent() string {
	return "yiyin/" + Version + " (+https://github.com/yiyinbot/yiyin)"
}
