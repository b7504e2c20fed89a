package config

import "fmt"

// The following vars are set through -ldflags at build time.
var (
	ModuleName           = "fhevm-client"
	Commit               = "< 40 chars git commit hash via ldflags >"
	BuildDate            = "< ISO8601 build date via ldflags >"
	ContractsDefaultPath = "contracts.toml"
)

// GetFormattedBuildArgs returns string representation of buildsargs set via ldflags "<ModuleName> @ <Commit> (<BuildDate>)"
func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%v @ %v (%v)", ModuleName, Commit, BuildDate)
}
