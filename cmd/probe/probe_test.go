package probe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/data/fixtures"
	"github/tomi204/fhevm-client/internal/test"
)

func TestRunLiveness(t *testing.T) {
	cfg := config.Client{
		Mode:     "local",
		Contract: config.Contract{Name: fixtures.ConfidentialToken, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		Signer:   config.Signer{PrivateKey: test.TestPrivateKey},
	}

	var out bytes.Buffer
	require.NoError(t, runLiveness(&out, cfg, true))

	assert.Contains(t, out.String(), test.TestAddress)
	assert.Contains(t, out.String(), "confidentialTransfer")
	assert.Contains(t, out.String(), "externalEuint64")
}

func TestRunLivenessWithoutSigner(t *testing.T) {
	cfg := config.Client{
		Contract: config.Contract{Name: fixtures.FHECounter, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
	}

	require.Error(t, runLiveness(&bytes.Buffer{}, cfg, false))
}
