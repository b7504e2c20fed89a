package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github/tomi204/fhevm-client/internal/wallet/seed"
)

const recoveryIDOffset = 27

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var (
	_ TypedDataSigner = (*KeySigner)(nil)
	_ Transactor      = (*KeySigner)(nil)
)

// NewKeySigner wraps an ECDSA private key.
func NewKeySigner(key *ecdsa.PrivateKey) (*KeySigner, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}

	publicKeyECDSA, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("failed to cast public key to ECDSA")
	}

	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// NewFromHex parses a hex encoded private key, with or without 0x prefix.
func NewFromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	return NewKeySigner(key)
}

// NewFromSeed derives the key at a BIP44 path from the manager's seed.
func NewFromSeed(ctx context.Context, seedManager seed.Manager, path string) (*KeySigner, error) {
	seedBytes, err := seedManager.Seed()
	if err != nil {
		return nil, err
	}
	defer wipe(seedBytes)

	privateKey, err := DerivePrivateKey(ctx, seedBytes, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive private key")
	}
	defer wipe(privateKey)

	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert private key to ECDSA")
	}

	return NewKeySigner(key)
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return s.signHash(accounts.TextHash(message))
}

func (s *KeySigner) SignTypedData(_ context.Context, typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash typed data")
	}
	return s.signHash(hash)
}

func (s *KeySigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chain ID is required")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transactor")
	}
	opts.Context = ctx

	return opts, nil
}

func (s *KeySigner) signHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign")
	}
	sig[crypto.RecoveryIDOffset] += recoveryIDOffset
	return sig, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
