package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version of the server and CLI
	Version = "3.0.0"

	// APIVersion is the version of the HTTP and websocket contracts
	APIVersion = "v1"
)

// Set during build using ldflags
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the body of GET /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// VersionString is printed by portfolio-cli --version
func VersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (api %s, commit %s, built %s, %s %s/%s)",
		info.Version, info.APIVersion, info.GitCommit, info.BuildTime,
		info.GoVersion, info.OS, info.Architecture)
}
