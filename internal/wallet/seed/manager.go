package seed

import (
	"crypto/sha512"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 2048 // BIP39
	seedLength       = 64
)

var validWordCounts = map[int]struct{}{12: {}, 15: {}, 18: {}, 21: {}, 24: {}}

type manager struct {
	mu   sync.RWMutex
	seed []byte
}

// NewManager creates an empty seed manager.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewManager() Manager {
	return &manager{}
}

// Initialize stretches the mnemonic into the BIP39 seed:
// PBKDF2(mnemonic, "mnemonic" + passphrase, 2048, 64, SHA512).
func (m *manager) Initialize(mnemonic string, passphrase string) error {
	words := strings.Fields(mnemonic)
	if _, ok := validWordCounts[len(words)]; !ok {
		return errors.Errorf("mnemonic must have 12, 15, 18, 21 or 24 words, got %d", len(words))
	}

	seed := pbkdf2.Key(
		[]byte(strings.Join(words, " ")),
		[]byte("mnemonic"+passphrase),
		pbkdf2Iterations,
		seedLength,
		sha512.New,
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	wipe(m.seed)
	m.seed = seed

	return nil
}

// Seed returns a copy so callers can wipe it after use.
func (m *manager) Seed() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.seed == nil {
		return nil, ErrNotInitialized
	}

	out := make([]byte, len(m.seed))
	copy(out, m.seed)
	return out, nil
}

func (m *manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.seed != nil
}

func (m *manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wipe(m.seed)
	m.seed = nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
