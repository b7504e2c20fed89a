package decrypt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/wallet/keystore"
)

// KeystoreStore writes each authorization to its own password-sealed keystore
// file below Dir. The decryption private key never touches disk in the clear.
type KeystoreStore struct {
	Dir      string
	Password string
	Params   keystore.ScryptParams
}

func NewKeystoreStore(dir string, password string) *KeystoreStore {
	return &KeystoreStore{
		Dir:      dir,
		Password: password,
		Params:   keystore.LightScryptParams(),
	}
}

func (k *KeystoreStore) path(key string) string {
	return filepath.Join(k.Dir, strings.TrimPrefix(key, "0x")+".json")
}

func (k *KeystoreStore) Get(_ context.Context, key string) (*Authorization, error) {
	plain, err := keystore.ReadFile(k.path(key), k.Password)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	var auth Authorization
	if err := json.Unmarshal(plain, &auth); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal authorization")
	}

	return &auth, nil
}

func (k *KeystoreStore) Put(_ context.Context, key string, auth *Authorization) error {
	plain, err := json.Marshal(auth)
	if err != nil {
		return errors.Wrap(err, "failed to marshal authorization")
	}

	//nolint:mnd // owner only
	if err := os.MkdirAll(k.Dir, 0o700); err != nil {
		return errors.Wrap(err, "failed to create authorization directory")
	}

	return keystore.WriteFile(k.path(key), plain, k.Password, k.Params)
}
