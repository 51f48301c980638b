// Package buildinfo stamps the query-server binary with version metadata
// printed on startup and on --help.
package buildinfo

import "fmt"

// BuildInfo holds the version, commit and build date of the query-server binary.
type BuildInfo struct {
	Version    string
	CommitHash string
	BuildDate  string
}

// String renders the build info for a log line or --help banner.
func (i BuildInfo) String() string {
	return fmt.Sprintf("version %s (%s) built on %s", i.Version, i.CommitHash, i.BuildDate)
}
