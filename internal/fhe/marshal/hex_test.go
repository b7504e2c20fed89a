package marshal_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/fhe/marshal"
)

func TestToCanonicalHex(t *testing.T) {
	fromBare, err := marshal.ToCanonicalHex("abcd")
	require.NoError(t, err)
	fromPrefixed, err := marshal.ToCanonicalHex("0xabcd")
	require.NoError(t, err)
	fromBytes, err := marshal.ToCanonicalHex([]byte{0xab, 0xcd})
	require.NoError(t, err)

	assert.Equal(t, "0xabcd", fromBare)
	assert.Equal(t, "0xabcd", fromPrefixed)
	assert.Equal(t, "0xabcd", fromBytes)

	upper, err := marshal.ToCanonicalHex("0XABCD")
	require.NoError(t, err)
	assert.Equal(t, "0xABCD", upper)

	hash := common.HexToHash("0x01")
	fromHash, err := marshal.ToCanonicalHex(hash)
	require.NoError(t, err)
	fromArray, err := marshal.ToCanonicalHex([32]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, fromHash, fromArray)

	_, err = marshal.ToCanonicalHex(42)
	require.Error(t, err)
}

func TestToCanonicalHexIdempotent(t *testing.T) {
	for _, in := range []any{"", "00", "abcd", "0xabcd", []byte{}, []byte{1, 2, 3}, common.HexToHash("0xff")} {
		once, err := marshal.ToCanonicalHex(in)
		require.NoError(t, err)
		twice, err := marshal.ToCanonicalHex(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestIsZeroHandle(t *testing.T) {
	assert.True(t, marshal.IsZeroHandle(common.Hash{}.Hex()))
	assert.True(t, marshal.IsZeroHandle("0x"))
	assert.True(t, marshal.IsZeroHandle("0000"))
	assert.False(t, marshal.IsZeroHandle(common.HexToHash("0x01").Hex()))
}
