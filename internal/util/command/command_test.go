package command_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/data/fixtures"
	"github/tomi204/fhevm-client/internal/test"
	"github/tomi204/fhevm-client/internal/util/command"
)

func TestWithClient(t *testing.T) {
	fake := test.NewFakeRelayer(t)

	cfg := config.DefaultClientConfigFromEnv()
	cfg.Mode = string(client.ModeRemote)
	cfg.Contract = config.Contract{Name: fixtures.FHECounter, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}
	cfg.Signer = config.Signer{PrivateKey: test.TestPrivateKey}
	cfg.Relayer.BaseURL = fake.URL()
	cfg.Logger.PrettyPrintConsole = false
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "client.prom")

	testError := errors.New("test error")

	resultErr := command.WithClient(t.Context(), cfg, func(ctx context.Context, c *client.Client) error {
		res, err := c.Read(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "42", res.Value)

		return testError
	})

	assert.Equal(t, testError, resultErr)

	raw, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fhevm_client_relayer_requests_total")
}

func TestWithClientInitError(t *testing.T) {
	cfg := config.DefaultClientConfigFromEnv()
	cfg.Contract = config.Contract{Name: fixtures.FHECounter, Address: "not-an-address"}

	called := false
	err := command.WithClient(t.Context(), cfg, func(context.Context, *client.Client) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
}

func TestClientConfigFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "read"}
	command.AddClientFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--mode", "local", "--contract", "ConfidentialToken"}))

	cfg := command.ClientConfig(cmd)
	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "ConfidentialToken", cfg.Contract.Name)

	plain := command.ClientConfig(&cobra.Command{Use: "env"})
	assert.NotEqual(t, "ConfidentialToken", plain.Contract.Name)
}

func TestNewSubcommandGroup(t *testing.T) {
	group := command.NewSubcommandGroup("probe", &cobra.Command{Use: "liveness"}, &cobra.Command{Use: "readiness"})

	assert.Equal(t, "probe <subcommand>", group.Use)
	assert.Len(t, group.Commands(), 2)
}
