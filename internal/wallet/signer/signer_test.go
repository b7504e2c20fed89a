package signer_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/wallet/seed"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

// hardhat account #0
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testPhrase  = "test test test test test test test test test test test junk"
)

func TestNewFromHex(t *testing.T) {
	s, err := signer.NewFromHex(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	_, err = signer.NewFromHex("0xnothex")
	require.Error(t, err)
}

func TestNewFromSeedMatchesHardhatAccount(t *testing.T) {
	manager := seed.NewManager()
	require.NoError(t, manager.Initialize(testPhrase, ""))

	s, err := signer.NewFromSeed(t.Context(), manager, signer.DefaultDerivationPath(0))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	manager.Clear()
	_, err = signer.NewFromSeed(t.Context(), manager, signer.DefaultDerivationPath(0))
	require.ErrorIs(t, err, seed.ErrNotInitialized)
}

func TestDerivePrivateKeyRejectsBadPath(t *testing.T) {
	for _, path := range []string{"", "44'/60'", "m/abc", "m/44'/x/0"} {
		_, err := signer.DerivePrivateKey(t.Context(), make([]byte, 64), path)
		require.Error(t, err, path)
	}
}

func TestSignMessageRecovers(t *testing.T) {
	s, err := signer.NewFromHex(testKey)
	require.NoError(t, err)

	message := []byte("ZAMA_FHE_REQUEST:session:getCount:[]:0")
	sig, err := s.SignMessage(t.Context(), message)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := signer.RecoverMessageSigner(message, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recovered)

	other, err := signer.RecoverMessageSigner([]byte("tampered"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, s.Address(), other)
}

func TestSignTypedDataRecovers(t *testing.T) {
	s, err := signer.NewFromHex(testKey)
	require.NoError(t, err)

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Session": {
				{Name: "sessionId", Type: "string"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "Session",
		Domain: apitypes.TypedDataDomain{
			Name:    "Relayer",
			ChainId: math.NewHexOrDecimal256(31337),
		},
		Message: apitypes.TypedDataMessage{
			"sessionId": "abc",
			"nonce":     "1",
		},
	}

	sig, err := s.SignTypedData(t.Context(), typedData)
	require.NoError(t, err)

	recovered, err := signer.RecoverTypedDataSigner(typedData, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recovered)
}

func TestTransactOpts(t *testing.T) {
	s, err := signer.NewFromHex(testKey)
	require.NoError(t, err)

	opts, err := s.TransactOpts(t.Context(), big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, s.Address(), opts.From)
	assert.Equal(t, t.Context(), opts.Context)

	_, err = s.TransactOpts(t.Context(), nil)
	require.Error(t, err)
}

func TestRecoverRejectsShortSignature(t *testing.T) {
	_, err := signer.RecoverMessageSigner([]byte("x"), []byte{1, 2, 3})
	require.Error(t, err)
}
