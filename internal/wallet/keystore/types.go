package keystore

import "github.com/pkg/errors"

const (
	keystoreVersion = 3
	cipherName      = "aes-128-ctr"
	kdfName         = "scrypt"
)

var ErrInvalidPassword = errors.New("invalid password: MAC mismatch")

// Envelope is the Ethereum keystore v3 file layout, used here to seal any
// secret (a mnemonic, a decryption authorization) under a password.
type Envelope struct {
	Version int           `json:"version"`
	ID      string        `json:"id"`
	Crypto  CryptoSection `json:"crypto"`
}

type CryptoSection struct {
	Cipher       string       `json:"cipher"`
	CipherParams CipherParams `json:"cipherparams"`
	Ciphertext   string       `json:"ciphertext"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams are the scrypt parameters as stored, with the hex salt.
type KDFParams struct {
	ScryptParams
	Salt string `json:"salt"`
}

type ScryptParams struct {
	DKLen int `json:"dklen"`
	N     int `json:"n"`
	R     int `json:"r"`
	P     int `json:"p"`
}

// DefaultScryptParams are the standard keystore v3 costs (n = 2^18).
func DefaultScryptParams() ScryptParams {
	return ScryptParams{DKLen: 32, N: 1 << 18, R: 8, P: 1}
}

// LightScryptParams trade strength for speed. Used for authorization files
// that are rewritten often, and in tests.
func LightScryptParams() ScryptParams {
	return ScryptParams{DKLen: 32, N: 1 << 12, R: 8, P: 6}
}
