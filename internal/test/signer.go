package test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

// hardhat account #0
const (
	TestPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	TestAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	TestMnemonic   = "test test test test test test test test test test test junk"
)

// CountingSigner counts signatures made by the wrapped key.
type CountingSigner struct {
	*signer.KeySigner

	messages atomic.Int32
	typed    atomic.Int32
}

func NewCountingSigner(t *testing.T) *CountingSigner {
	t.Helper()

	key, err := signer.NewFromHex(TestPrivateKey)
	require.NoError(t, err)

	return &CountingSigner{KeySigner: key}
}

func (c *CountingSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	c.messages.Add(1)
	return c.KeySigner.SignMessage(ctx, message)
}

func (c *CountingSigner) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	c.typed.Add(1)
	return c.KeySigner.SignTypedData(ctx, typedData)
}

func (c *CountingSigner) MessageSignatures() int {
	return int(c.messages.Load())
}

func (c *CountingSigner) TypedDataSignatures() int {
	return int(c.typed.Load())
}

// MessageOnlySigner hides the typed data capability of a signer.
type MessageOnlySigner struct {
	signer.Signer
}
