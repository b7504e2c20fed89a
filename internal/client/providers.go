package client

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/tomi204/fhevm-client/internal/chain"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/data/fixtures"
	"github/tomi204/fhevm-client/internal/decrypt"
	"github/tomi204/fhevm-client/internal/fhe"
	"github/tomi204/fhevm-client/internal/fhe/mock"
	"github/tomi204/fhevm-client/internal/metrics"
	"github/tomi204/fhevm-client/internal/wallet/keystore"
	"github/tomi204/fhevm-client/internal/wallet/seed"
	"github/tomi204/fhevm-client/internal/wallet/signer"
)

const (
	EngineMock = "mock"

	StoreMemory   = "memory"
	StoreKeystore = "keystore"
	StoreRedis    = "redis"
)

var ErrNoSignerConfigured = errors.New("no private key, mnemonic or keystore configured")

// NewDescriptor resolves the target contract from the registry file, an
// explicit address and ABI file, or an embedded fixture ABI.
func NewDescriptor(cfg config.Client) (contract.Descriptor, error) {
	name := cfg.Contract.Name
	address := cfg.Contract.Address
	abiPath := cfg.Contract.ABIPath
	readFunction := ""

	if name != "" && (address == "" || abiPath == "") {
		if _, err := os.Stat(cfg.Contract.Registry); err == nil {
			reg, err := config.LoadContractRegistry(cfg.Contract.Registry)
			if err != nil {
				return contract.Descriptor{}, err
			}
			entry, err := reg.Lookup(name)
			if err != nil {
				return contract.Descriptor{}, err
			}
			if address == "" {
				address = entry.Address
			}
			if abiPath == "" {
				abiPath = entry.ABI
			}
			readFunction = entry.Read
		}
	}

	if !common.IsHexAddress(address) {
		return contract.Descriptor{}, errors.Errorf("invalid contract address %q", address)
	}

	var (
		parsed *contract.ABI
		err    error
	)
	switch {
	case abiPath != "":
		raw, readErr := os.ReadFile(abiPath)
		if readErr != nil {
			return contract.Descriptor{}, errors.Wrap(readErr, "failed to read contract ABI")
		}
		parsed, err = contract.ParseABI(raw)
	case name != "":
		parsed, err = fixtures.ABI(name)
	default:
		err = errors.New("contract ABI path or name is required")
	}
	if err != nil {
		return contract.Descriptor{}, err
	}

	return contract.Descriptor{
		Address: common.HexToAddress(address),
		ABI:     parsed,
		Name:    name,

		ReadFunction: readFunction,
	}, nil
}

// NewSigner builds the local account from a private key, a mnemonic or a
// keystore sealed mnemonic, in that order.
func NewSigner(cfg config.Client) (*signer.KeySigner, error) {
	sc := cfg.Signer

	if sc.PrivateKey != "" {
		return signer.NewFromHex(sc.PrivateKey)
	}

	mnemonic := sc.Mnemonic
	if mnemonic == "" && sc.KeystorePath != "" {
		plain, err := keystore.ReadFile(sc.KeystorePath, sc.KeystorePassword)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open signer keystore")
		}
		mnemonic = string(plain)
	}

	if mnemonic == "" {
		return nil, ErrNoSignerConfigured
	}

	manager := seed.NewManager()
	if err := manager.Initialize(mnemonic, sc.MnemonicPassphrase); err != nil {
		return nil, err
	}
	defer manager.Clear()

	return signer.NewFromSeed(context.Background(), manager, signer.DefaultDerivationPath(sc.DerivationIndex))
}

// NewRPCClient dials eagerly in local mode. Remote clients only reach the chain
// for client-sign responses, so their endpoints are dialed on first use.
func NewRPCClient(cfg config.Client) (*chain.RPCClient, func(), error) {
	if Mode(cfg.Mode) == ModeRemote {
		rpc := chain.NewLazyRPCClient(cfg.Chain.RPCURLs)
		return rpc, rpc.Close, nil
	}

	rpc, err := chain.NewRPCClient(cfg.Chain.RPCURLs)
	if err != nil {
		return nil, nil, err
	}

	return rpc, rpc.Close, nil
}

func NewBoundContract(cfg config.Client, rpc *chain.RPCClient, descriptor contract.Descriptor, key *signer.KeySigner) *chain.BoundContract {
	bound := chain.NewBoundContract(rpc, descriptor, key)
	if cfg.Chain.ReceiptPollInterval > 0 {
		bound.ReceiptPollInterval = cfg.Chain.ReceiptPollInterval
	}
	if cfg.Chain.ReceiptWaitTimeout > 0 {
		bound.ReceiptWaitTimeout = cfg.Chain.ReceiptWaitTimeout
	}

	return bound
}

func NewEngineProvider(cfg config.Client) (*fhe.Provider, error) {
	switch cfg.Engine.Kind {
	case EngineMock:
		return fhe.NewProvider(mock.Factory(mock.Config{
			ChainID:           cfg.Engine.ChainID,
			VerifyingContract: common.HexToAddress(cfg.Engine.VerifyingContract),
		})), nil
	default:
		return nil, errors.Errorf("unsupported encryption engine %q", cfg.Engine.Kind)
	}
}

// NewDecryptStore returns the configured authorization store. The cleanup
// function closes the redis connection pool.
func NewDecryptStore(cfg config.Client) (decrypt.Store, func(), error) {
	noop := func() {}

	switch cfg.Decrypt.Store {
	case StoreMemory, "":
		return decrypt.NewMemoryStore(), noop, nil
	case StoreKeystore:
		if cfg.Decrypt.KeystorePassword == "" {
			return nil, nil, errors.New("keystore authorization store requires a password")
		}
		return decrypt.NewKeystoreStore(cfg.Decrypt.KeystoreDir, cfg.Decrypt.KeystorePassword), noop, nil
	case StoreRedis:
		store := decrypt.NewRedisStore(cfg.Decrypt.RedisAddr)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("NewDecryptStore: failed to close redis store")
			}
		}, nil
	default:
		return nil, nil, errors.Errorf("unknown decryption store %q", cfg.Decrypt.Store)
	}
}

func NewDecryptLoader(cfg config.Client) *decrypt.Service {
	loader := decrypt.NewService()
	if cfg.Decrypt.DurationDays > 0 {
		loader.DurationDays = cfg.Decrypt.DurationDays
	}

	return loader
}

// NewOptions assembles Options for the configured mode. Both mode option sets
// are filled in; New only reads the one Mode selects.
func NewOptions(
	cfg config.Client,
	descriptor contract.Descriptor,
	key *signer.KeySigner,
	bound *chain.BoundContract,
	engine *fhe.Provider,
	loader decrypt.Loader,
	store decrypt.Store,
	m *metrics.Service,
) Options {
	remote := &RemoteOptions{
		BaseURL:    cfg.Relayer.BaseURL,
		APIKey:     cfg.Relayer.APIKey,
		HTTPClient: &http.Client{Timeout: relayerTimeout(cfg)},
	}
	if cfg.Relayer.ClientSign {
		remote.Transactor = bound
	}

	readFunction := cfg.DefaultReadFunction
	if descriptor.ReadFunction != "" {
		readFunction = descriptor.ReadFunction
	}

	return Options{
		Mode:                Mode(cfg.Mode),
		Contract:            descriptor,
		Signer:              key,
		DefaultReadFunction: readFunction,
		Metrics:             m,
		Local: &LocalOptions{
			Contract: bound,
			Engine:   engine,
			Loader:   loader,
			Store:    store,
		},
		Remote: remote,
	}
}

func relayerTimeout(cfg config.Client) time.Duration {
	if cfg.Relayer.Timeout > 0 {
		return cfg.Relayer.Timeout
	}

	return 30 * time.Second
}
