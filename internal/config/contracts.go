package config

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ContractEntry is one contract of the registry file:
//
//	[contracts.FHECounter]
//	address = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
//	abi = "abi/FHECounter.json"
//	read = "getCount"
type ContractEntry struct {
	Address string `toml:"address"`
	ABI     string `toml:"abi"`
	Read    string `toml:"read"`
}

type ContractRegistry struct {
	Contracts map[string]ContractEntry `toml:"contracts"`
}

var ErrContractNotRegistered = errors.New("contract not found in registry")

// LoadContractRegistry decodes the TOML registry at path. Relative ABI paths
// are resolved against the directory of the registry file.
func LoadContractRegistry(path string) (*ContractRegistry, error) {
	var reg ContractRegistry

	meta, err := toml.DecodeFile(path, &reg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode contract registry %s", path)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown keys in contract registry %s: %v", path, undecoded)
	}

	dir := filepath.Dir(path)
	for name, entry := range reg.Contracts {
		if entry.ABI != "" && !filepath.IsAbs(entry.ABI) {
			entry.ABI = filepath.Join(dir, entry.ABI)
			reg.Contracts[name] = entry
		}
	}

	return &reg, nil
}

func (r *ContractRegistry) Lookup(name string) (ContractEntry, error) {
	entry, ok := r.Contracts[name]
	if !ok {
		return ContractEntry{}, errors.Wrap(ErrContractNotRegistered, name)
	}

	return entry, nil
}
