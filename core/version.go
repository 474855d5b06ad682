package core

// AppName is the service title reported by the status endpoint.
const AppName = "TinyIMG Server"

// AppDescription is a short summary of what the service does.
const AppDescription = "Minimal image generation server with device pooling and request admission"

// Version is the application version, set at build time via ldflags:
//
//	go build -ldflags "-X tinyimg/core.Version=$(git describe --tags --always)" .
//
// Defaults to "dev" when not injected.
var Version = "dev"

// BuildTime is the build timestamp, set via
// -X tinyimg/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ).
var BuildTime = "unknown"

// GitCommit is the short commit hash, set via
// -X tinyimg/core.GitCommit=$(git rev-parse --short HEAD).
var GitCommit = "unknown"

// GetVersion returns the application version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns a formatted version line, for example
// "v1.0.0 (built 2026-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
