package signer

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// RecoverMessageSigner returns the address that produced an EIP-191 signature.
func RecoverMessageSigner(message []byte, signature []byte) (common.Address, error) {
	return recoverHash(accounts.TextHash(message), signature)
}

// RecoverTypedDataSigner returns the address that signed typed data.
func RecoverTypedDataSigner(typedData apitypes.TypedData, signature []byte) (common.Address, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to hash typed data")
	}
	return recoverHash(hash, signature)
}

func recoverHash(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, errors.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= recoveryIDOffset {
		sig[crypto.RecoveryIDOffset] -= recoveryIDOffset
	}

	publicKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to recover public key")
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}
