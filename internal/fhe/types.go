// Package fhe describes the encryption engine the confidential call client
// drives: building encrypted inputs for a contract call and decrypting handles
// for a user holding a decryption authorization.
package fhe

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
)

// EncryptedInput is the output of one encryption round. Handles are single use
// and bound to the call they were produced for, so they are never cached.
type EncryptedInput struct {
	Handles    [][]byte
	InputProof []byte
}

// HandleContractPair names a handle together with the contract holding it.
type HandleContractPair struct {
	Handle          string         `json:"handle"`
	ContractAddress common.Address `json:"contractAddress"`
}

// InputBuilder accumulates cleartext values to be encrypted for one call.
// Values are encrypted in the order they were added.
type InputBuilder interface {
	AddBool(value bool) InputBuilder
	Add8(value uint8) InputBuilder
	Add16(value uint16) InputBuilder
	Add32(value uint32) InputBuilder
	Add64(value uint64) InputBuilder
	Add128(value *uint256.Int) InputBuilder
	Add256(value *uint256.Int) InputBuilder
	AddAddress(value common.Address) InputBuilder
	Encrypt(ctx context.Context) (*EncryptedInput, error)
}

// Engine is the FHE encryption/decryption engine.
type Engine interface {
	// CreateEncryptedInput starts a new input bound to contract and user.
	CreateEncryptedInput(contract common.Address, user common.Address) (InputBuilder, error)

	// UserDecrypt decrypts handles with a user decryption authorization. The result
	// maps canonical handle hex to the cleartext (bool, *big.Int or string).
	UserDecrypt(
		ctx context.Context,
		pairs []HandleContractPair,
		privateKey string,
		publicKey string,
		signature string,
		contracts []common.Address,
		user common.Address,
		startTimestamp int64,
		durationDays int64,
	) (map[string]any, error)

	// GenerateKeypair creates the transport keypair used for user decryption.
	GenerateKeypair() (publicKey string, privateKey string, err error)

	// CreateEIP712 builds the typed data a user signs to authorize decryption.
	CreateEIP712(publicKey string, contracts []common.Address, startTimestamp int64, durationDays int64) (*apitypes.TypedData, error)
}

// Factory creates an engine. It may block on network or key material download
// and must honour ctx cancellation.
type Factory func(ctx context.Context) (Engine, error)
