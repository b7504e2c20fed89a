package keystore

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// Open decrypts a keystore v3 envelope.
func Open(ks *Envelope, password string) ([]byte, error) {
	if ks.Crypto.Cipher != cipherName || ks.Crypto.KDF != kdfName {
		return nil, errors.Errorf("unsupported keystore cipher %q / kdf %q", ks.Crypto.Cipher, ks.Crypto.KDF)
	}

	salt, err := hex.DecodeString(ks.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode salt")
	}

	//nolint:varnamelen // iv is a common abbreviation for initialization vector
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode IV")
	}

	ciphertext, err := hex.DecodeString(ks.Crypto.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ciphertext")
	}

	expectedMAC, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode MAC")
	}

	params := ks.Crypto.KDFParams.ScryptParams
	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}

	if subtle.ConstantTimeCompare(mac(derivedKey[16:32], ciphertext), expectedMAC) != 1 {
		return nil, ErrInvalidPassword
	}

	return aes128CTR(derivedKey[:16], iv, ciphertext)
}

// ReadFile loads and decrypts a keystore file.
func ReadFile(path string, password string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keystore file")
	}

	var ks Envelope
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	return Open(&ks, password)
}

// WriteFile seals secret and writes it to path with owner-only permissions.
func WriteFile(path string, secret []byte, password string, params ScryptParams) error {
	ks, err := Seal(secret, password, params)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore JSON")
	}

	//nolint:mnd // owner read/write only
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write keystore file")
	}

	return nil
}
