package buildinfo

import "github.com/Masterminds/semver/v3"

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// Short returns a compact build identifier for UI/logging. A semantic
// version is normalised to its canonical "vX.Y.Z" form.
func Short() string {
	if Version != "" && Version != "dev" {
		if v, err := semver.NewVersion(Version); err == nil {
			return "v" + v.String()
		}
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}
