// Package version exposes the build identity of the deckforge binary.
// Values are stamped at build time with ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deckforge/internal/version.Version=v1.2.3"
package version

// Version is the release tag, "dev" for local builds.
var Version = "dev"

// Commit is the short git commit hash, empty for local builds.
var Commit = ""

// GetVersion returns the version string, with the commit hash appended
// when it was stamped in.
func GetVersion() string {
	if Commit != "" {
		return Version + "+" + Commit
	}
	return Version
}
