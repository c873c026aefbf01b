package config

import "fmt"

// The following vars are injected via -ldflags, e.g.
// -X github/chapool/go-ethsigner/internal/config.Commit=$(git rev-parse HEAD)
var (
	ModuleName = "github/chapool/go-ethsigner"
	Commit     = "< 40 chars git commit hash via ldflags >"
	BuildDate  = "< YYYY-MM-DDTHH:MM:SS+ZZ:ZZ via ldflags >"
)

// GetFormattedBuildArgs returns string representation of buildsargs set via ldflags "<ModuleName> @ <Commit> (<BuildDate>)"
func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%v @ %v (%v)", ModuleName, Commit, BuildDate)
}
