package fixtures_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/data/fixtures"
)

func TestEmbeddedABIs(t *testing.T) {
	assert.ElementsMatch(t, []string{fixtures.ConfidentialToken, fixtures.FHECounter}, fixtures.Names())

	counter, err := fixtures.ABI(fixtures.FHECounter)
	require.NoError(t, err)

	increment, err := counter.Function("increment")
	require.NoError(t, err)
	require.Len(t, increment.Inputs, 2)
	assert.Equal(t, "externalEuint32", increment.Inputs[0].InternalType)

	token := fixtures.MustABI(fixtures.ConfidentialToken)
	view, err := token.Function("confidentialBalanceOf")
	require.NoError(t, err)
	assert.True(t, view.IsView())

	_, err = fixtures.ABI("Missing")
	require.Error(t, err)
}
