package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/decrypt"
	"github/tomi204/fhevm-client/internal/test"
	"github/tomi204/fhevm-client/internal/wallet/keystore"
)

func TestNewDescriptorFromRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "abi"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abi", "Counter.json"), []byte(`[
		{"type":"function","name":"getCount","stateMutability":"view","inputs":[],
		 "outputs":[{"name":"","type":"bytes32","internalType":"euint32"}]}
	]`), 0o600))
	registry := filepath.Join(dir, "contracts.toml")
	require.NoError(t, os.WriteFile(registry, []byte(`
[contracts.Counter]
address = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
abi = "abi/Counter.json"
read = "getCount"
`), 0o600))

	d, err := client.NewDescriptor(config.Client{Contract: config.Contract{Name: "Counter", Registry: registry}})
	require.NoError(t, err)
	assert.Equal(t, counterAddress, d.Address)
	assert.Equal(t, "getCount", d.ReadFunction)
	_, err = d.ABI.Function("getCount")
	require.NoError(t, err)

	_, err = client.NewDescriptor(config.Client{Contract: config.Contract{Name: "Other", Registry: registry}})
	require.ErrorIs(t, err, config.ErrContractNotRegistered)
}

func TestNewDescriptorRequiresAddress(t *testing.T) {
	_, err := client.NewDescriptor(config.Client{Contract: config.Contract{Name: "FHECounter"}})
	require.Error(t, err)
}

func TestNewSignerSources(t *testing.T) {
	fromKey, err := client.NewSigner(config.Client{Signer: config.Signer{PrivateKey: test.TestPrivateKey}})
	require.NoError(t, err)
	assert.Equal(t, test.TestAddress, fromKey.Address().Hex())

	fromMnemonic, err := client.NewSigner(config.Client{Signer: config.Signer{Mnemonic: test.TestMnemonic}})
	require.NoError(t, err)
	assert.Equal(t, test.TestAddress, fromMnemonic.Address().Hex())

	path := filepath.Join(t.TempDir(), "signer.json")
	require.NoError(t, keystore.WriteFile(path, []byte(test.TestMnemonic), "pw", keystore.LightScryptParams()))

	fromKeystore, err := client.NewSigner(config.Client{Signer: config.Signer{KeystorePath: path, KeystorePassword: "pw"}})
	require.NoError(t, err)
	assert.Equal(t, test.TestAddress, fromKeystore.Address().Hex())

	_, err = client.NewSigner(config.Client{Signer: config.Signer{KeystorePath: path, KeystorePassword: "nope"}})
	require.ErrorIs(t, err, keystore.ErrInvalidPassword)

	_, err = client.NewSigner(config.Client{})
	require.ErrorIs(t, err, client.ErrNoSignerConfigured)
}

func TestNewDecryptStore(t *testing.T) {
	store, cleanup, err := client.NewDecryptStore(config.Client{Decrypt: config.Decrypt{Store: client.StoreMemory}})
	require.NoError(t, err)
	assert.IsType(t, &decrypt.MemoryStore{}, store)
	cleanup()

	store, cleanup, err = client.NewDecryptStore(config.Client{Decrypt: config.Decrypt{Store: client.StoreKeystore, KeystoreDir: t.TempDir(), KeystorePassword: "pw"}})
	require.NoError(t, err)
	assert.IsType(t, &decrypt.KeystoreStore{}, store)
	cleanup()

	_, _, err = client.NewDecryptStore(config.Client{Decrypt: config.Decrypt{Store: client.StoreKeystore}})
	require.Error(t, err)

	_, _, err = client.NewDecryptStore(config.Client{Decrypt: config.Decrypt{Store: "disk"}})
	require.Error(t, err)
}

func TestNewDecryptStoreRedisCleanup(t *testing.T) {
	srv := miniredis.RunT(t)

	store, cleanup, err := client.NewDecryptStore(config.Client{Decrypt: config.Decrypt{Store: client.StoreRedis, RedisAddr: srv.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &decrypt.RedisStore{}, store)

	got, err := store.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	cleanup()

	_, err = store.Get(t.Context(), "missing")
	require.ErrorContains(t, err, "client is closed")
}

func TestNewEngineProvider(t *testing.T) {
	provider, err := client.NewEngineProvider(config.Client{Engine: config.Engine{Kind: client.EngineMock, ChainID: 31337}})
	require.NoError(t, err)

	engine, err := provider.Get(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, engine)
	require.NoError(t, provider.Close())

	_, err = client.NewEngineProvider(config.Client{Engine: config.Engine{Kind: "coprocessor"}})
	require.Error(t, err)
}
