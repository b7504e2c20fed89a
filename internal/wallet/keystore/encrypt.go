package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 32
	ivLength   = 16 // AES block size
)

// Seal encrypts secret under password.
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func Seal(secret []byte, password string, params ScryptParams) (*Envelope, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate IV")
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}

	// first half encrypts, second half authenticates
	ciphertext, err := aes128CTR(derivedKey[:16], iv, secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt secret")
	}

	ks := &Envelope{
		Version: keystoreVersion,
		ID:      uuid.New().String(),
		Crypto: CryptoSection{
			Cipher:       cipherName,
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			Ciphertext:   hex.EncodeToString(ciphertext),
			KDF:          kdfName,
			KDFParams:    KDFParams{ScryptParams: params, Salt: hex.EncodeToString(salt)},
			MAC:          hex.EncodeToString(mac(derivedKey[16:32], ciphertext)),
		},
	}

	return ks, nil
}

// aes128CTR is symmetric: the same call encrypts and decrypts.
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func aes128CTR(key []byte, iv []byte, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)

	return out, nil
}

// mac is keccak256(derivedKey[16:32] || ciphertext) as in keystore v3.
func mac(key []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(key, ciphertext)
}
