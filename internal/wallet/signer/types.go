package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer authenticates messages on behalf of one account.
type Signer interface {
	// Address is the account the signer signs for.
	Address() common.Address

	// SignMessage signs an EIP-191 personal message ("\x19Ethereum Signed Message:\n" prefix).
	// The returned signature is 65 bytes with V in {27, 28}.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// TypedDataSigner is a Signer able to sign EIP-712 typed data.
type TypedDataSigner interface {
	Signer

	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)
}

// Transactor is a Signer able to sign transactions for contract bindings.
type Transactor interface {
	Signer

	// TransactOpts returns options signing with the account for chainID.
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}
