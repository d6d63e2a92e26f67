// Package version holds the ccstrip release version.
package version

// Version is overridden at release time via -ldflags.
var Version = "0.3.0"
