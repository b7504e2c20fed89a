package contract_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/contract"
)

const counterABI = `[
  {"type":"function","name":"getCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32","internalType":"euint32"}]},
  {"type":"function","name":"increment","stateMutability":"nonpayable",
   "inputs":[{"name":"inputEuint32","type":"bytes32","internalType":"externalEuint32"},
             {"name":"inputProof","type":"bytes","internalType":"bytes"}],"outputs":[]},
  {"type":"event","name":"Incremented","inputs":[],"anonymous":false}
]`

func TestParseABIKeepsInternalTypes(t *testing.T) {
	parsed, err := contract.ParseABI([]byte(counterABI))
	require.NoError(t, err)

	require.Len(t, parsed.Functions(), 2)

	fn, err := parsed.Function("increment")
	require.NoError(t, err)
	require.Len(t, fn.Inputs, 2)
	assert.Equal(t, "externalEuint32", fn.Inputs[0].InternalType)
	assert.Equal(t, "inputProof", fn.Inputs[1].Name)
	assert.False(t, fn.IsView())

	view, err := parsed.Function("getCount")
	require.NoError(t, err)
	assert.True(t, view.IsView())

	method, err := parsed.Method("increment")
	require.NoError(t, err)
	assert.Len(t, method.Inputs, 2)
}

func TestParseABIArtifact(t *testing.T) {
	artifact := `{"contractName":"FHECounter","abi":` + counterABI + `}`
	parsed, err := contract.ParseABI([]byte(artifact))
	require.NoError(t, err)

	_, err = parsed.Function("getCount")
	require.NoError(t, err)

	raw, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, counterABI, string(raw))
}

func TestFunctionNotFound(t *testing.T) {
	parsed := contract.MustParseABI(counterABI)

	_, err := parsed.Function("decrement")
	require.ErrorIs(t, err, contract.ErrFunctionNotFound)

	_, err = parsed.Method("decrement")
	require.ErrorIs(t, err, contract.ErrFunctionNotFound)
}

func TestParseABIRejectsGarbage(t *testing.T) {
	_, err := contract.ParseABI(nil)
	require.Error(t, err)

	_, err = contract.ParseABI([]byte(`{"foo":1}`))
	require.Error(t, err)

	_, err = contract.ParseABI([]byte(`not json`))
	require.Error(t, err)
}

func TestCoerceArguments(t *testing.T) {
	parsed := contract.MustParseABI(`[
	  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
	    {"name":"to","type":"address","internalType":"address"},
	    {"name":"amount","type":"bytes32","internalType":"externalEuint64"},
	    {"name":"proof","type":"bytes","internalType":"bytes"},
	    {"name":"small","type":"uint32","internalType":"uint32"},
	    {"name":"big","type":"uint256","internalType":"uint256"},
	    {"name":"flag","type":"bool","internalType":"bool"}
	  ],"outputs":[]}
	]`)
	method, err := parsed.Method("transfer")
	require.NoError(t, err)

	to := "0x00000000000000000000000000000000000000aa"
	args, err := contract.CoerceArguments(method, []any{
		to,
		"0x01",
		"0xbeef",
		json.Number("5"),
		"1000000000000000000000",
		"true",
	})
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(to), args[0])

	var handle [32]byte
	handle[0] = 0x01
	assert.Equal(t, handle, args[1])
	assert.Equal(t, []byte{0xbe, 0xef}, args[2])
	assert.Equal(t, uint32(5), args[3])

	want, _ := new(big.Int).SetString("1000000000000000000000", 10)
	assert.Equal(t, want, args[4])
	assert.Equal(t, true, args[5])

	_, err = method.Inputs.Pack(args...)
	require.NoError(t, err)
}

func TestCoerceArgumentsErrors(t *testing.T) {
	parsed := contract.MustParseABI(`[
	  {"type":"function","name":"set","stateMutability":"nonpayable","inputs":[
	    {"name":"v","type":"uint8","internalType":"uint8"}],"outputs":[]}
	]`)
	method, err := parsed.Method("set")
	require.NoError(t, err)

	_, err = contract.CoerceArguments(method, []any{256})
	require.ErrorIs(t, err, contract.ErrInvalidArgument)

	_, err = contract.CoerceArguments(method, []any{"abc"})
	require.ErrorIs(t, err, contract.ErrInvalidArgument)

	_, err = contract.CoerceArguments(method, []any{1, 2})
	require.ErrorIs(t, err, contract.ErrInvalidArgument)

	args, err := contract.CoerceArguments(method, []any{nil})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), args[0])
}
