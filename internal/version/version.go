// Package version holds build identity injected via -ldflags.
package version

var (
	Commit = "dev"
	Tag    = ""
)
