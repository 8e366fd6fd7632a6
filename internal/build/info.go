package build

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}

// UserAgent is sent with outbound provider requests.
func UserAgent() string {
	return "angelia/" + Version
}

// SemVer parses Version. Development builds ("dev", untagged commits) return
// an error.
func SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("build version %q is not a release: %w", Version, err)
	}
	return v, nil
}
