package contracts

import (
	"fmt"
	"runtime"
)

const (
	// SummaryFormatVersion is the version of the summary.json document
	SummaryFormatVersion = "v1"

	// EventFormatVersion is the version of the Kafka segment event payloads.
	// It travels in the "schema_version" message header.
	EventFormatVersion = "v1"

	// APIVersion is the version of the HTTP and WebSocket API
	APIVersion = "v1"
)

var (
	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version       string `json:"version"`
	BuildTime     string `json:"build_time,omitempty"`
	GitCommit     string `json:"git_commit"`
	GoVersion     string `json:"go_version"`
	OS            string `json:"os"`
	Architecture  string `json:"arch"`
	SummaryFormat string `json:"summary_format"`
	EventFormat   string `json:"event_format"`
	APIVersion    string `json:"api_version"`
	StartTime     string `json:"start_time,omitempty"`
}

// GetVersionInfo returns detailed version information for an application version
func GetVersionInfo(version, buildTime string) VersionInfo {
	return VersionInfo{
		Version:       version,
		BuildTime:     buildTime,
		GitCommit:     GitCommit,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		SummaryFormat: SummaryFormatVersion,
		EventFormat:   EventFormatVersion,
		APIVersion:    APIVersion,
	}
}

// String returns a one line description of the build
func (v VersionInfo) String() string {
	return fmt.Sprintf("v%s (commit: %s, go: %s, os: %s/%s)",
		v.Version, v.GitCommit, v.GoVersion, v.OS, v.Architecture)
}
