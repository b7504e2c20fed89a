package seed

import "github.com/pkg/errors"

// ErrNotInitialized is returned when the seed is read before Initialize.
var ErrNotInitialized = errors.New("seed not initialized")

// Manager keeps the BIP39 seed a mnemonic signer derives its keys from.
type Manager interface {
	// Initialize derives the seed from a mnemonic and optional passphrase.
	Initialize(mnemonic string, passphrase string) error

	// Seed returns a copy of the seed.
	Seed() ([]byte, error)

	// IsInitialized checks if the seed is held in memory.
	IsInitialized() bool

	// Clear wipes the seed from memory.
	Clear()
}
