// Package version holds the application version, overridable at build time
// with -ldflags "-X github.com/optionfolio/backend/internal/version.Version=...".
package version

// Version is the application release version.
var Version = "1.0.0"
