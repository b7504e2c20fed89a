// Package fixtures ships contract ABIs used by tests and as CLI defaults.
package fixtures

import (
	"embed"
	"path"

	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/contract"
)

//go:embed abi/*.json
var abiFS embed.FS

const (
	FHECounter        = "FHECounter"
	ConfidentialToken = "ConfidentialToken"
)

// ABI returns the embedded ABI of the named contract.
func ABI(name string) (*contract.ABI, error) {
	raw, err := abiFS.ReadFile(path.Join("abi", name+".json"))
	if err != nil {
		return nil, errors.Wrapf(err, "unknown fixture contract %q", name)
	}

	return contract.ParseABI(raw)
}

// MustABI is ABI for tests.
func MustABI(name string) *contract.ABI {
	parsed, err := ABI(name)
	if err != nil {
		panic(err)
	}

	return parsed
}

// Names lists the embedded contracts.
func Names() []string {
	entries, _ := abiFS.ReadDir("abi")

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}

	return names
}
