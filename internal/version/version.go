// Package version reports build metadata set with -ldflags -X.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata as "version (commit, date)".
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
