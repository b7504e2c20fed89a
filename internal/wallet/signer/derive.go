package signer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

const (
	hardenedOffset   = 0x80000000
	privateKeyLength = 32
)

// DefaultDerivationPath returns the EVM BIP44 path for an account index:
// m/44'/60'/0'/0/{index}.
func DefaultDerivationPath(index int) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}

// DerivePrivateKey derives the 32 byte private key at path from a BIP39 seed.
// WARNING: Caller must clear the private key after use
func DerivePrivateKey(_ context.Context, seed []byte, path string) ([]byte, error) {
	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	if len(key.Key) > privateKeyLength {
		return nil, errors.Errorf("derived key has %d bytes", len(key.Key))
	}

	// child keys with leading zero bytes come back short
	out := make([]byte, privateKeyLength)
	copy(out[privateKeyLength-len(key.Key):], key.Key)
	wipe(key.Key)

	return out, nil
}

// parseDerivationPath turns "m/44'/60'/0'/0/0" into child indices, adding the
// hardened offset for segments ending in ' or h.
func parseDerivationPath(path string) ([]uint32, error) {
	segments := strings.Split(strings.TrimSpace(path), "/")
	if len(segments) == 0 || segments[0] != "m" {
		return nil, errors.Errorf("invalid derivation path: %q", path)
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, segment := range segments[1:] {
		if segment == "" {
			continue
		}

		hardened := strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h")
		segment = strings.TrimRight(segment, "'h")

		index, err := strconv.ParseUint(segment, 10, 31)
		if err != nil {
			return nil, errors.Errorf("invalid path segment %q in %q", segment, path)
		}

		if hardened {
			index += hardenedOffset
		}
		indices = append(indices, uint32(index))
	}

	return indices, nil
}
