package relayer_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/relayer"
)

func TestBuildMessage(t *testing.T) {
	msg, err := relayer.BuildMessage("sess-1", "getCount", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "ZAMA_FHE_REQUEST:sess-1:getCount:[]:0", msg)

	msg, err = relayer.BuildMessage("sess-1", "transfer", []any{5, "0x<a>", true, json.Number("12")}, 42)
	require.NoError(t, err)
	assert.Equal(t, `ZAMA_FHE_REQUEST:sess-1:transfer:[5,"0x<a>",true,12]:42`, msg)
}

func TestBuildMessageKeepsLineSeparatorsRaw(t *testing.T) {
	msg, err := relayer.BuildMessage("s", "f", []any{"a\u2028b\u2029c"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "ZAMA_FHE_REQUEST:s:f:[\"a\u2028b\u2029c\"]:0", msg)

	// a literal backslash followed by u2028 stays escaped
	msg, err = relayer.BuildMessage("s", "f", []any{`x\u2028`}, 0)
	require.NoError(t, err)
	assert.Equal(t, `ZAMA_FHE_REQUEST:s:f:["x\\u2028"]:0`, msg)
}

func TestQuantityUnmarshal(t *testing.T) {
	for input, want := range map[string]uint64{
		`7`:      7,
		`"7"`:    7,
		`"0x10"`: 16,
		`0`:      0,
	} {
		var q relayer.Quantity
		require.NoError(t, json.Unmarshal([]byte(input), &q), input)
		assert.Equal(t, want, uint64(q), input)
	}

	var q relayer.Quantity
	require.Error(t, json.Unmarshal([]byte(`"abc"`), &q))
	require.Error(t, json.Unmarshal([]byte(`-1`), &q))
}
