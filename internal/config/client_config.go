package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github/tomi204/fhevm-client/internal/util"
)

const envPrefix = "FHE"

type Contract struct {
	Name     string
	Address  string
	ABIPath  string
	Registry string
}

type Signer struct {
	PrivateKey         string `json:"-"` // sensitive
	Mnemonic           string `json:"-"` // sensitive
	MnemonicPassphrase string `json:"-"` // sensitive
	KeystorePath       string
	KeystorePassword   string `json:"-"` // sensitive
	DerivationIndex    int
}

type Chain struct {
	RPCURLs             []string
	ReceiptPollInterval time.Duration
	ReceiptWaitTimeout  time.Duration
}

type Relayer struct {
	BaseURL    string
	APIKey     string `json:"-"` // sensitive
	Timeout    time.Duration
	ClientSign bool
}

type Engine struct {
	Kind              string
	ChainID           int64
	VerifyingContract string
}

type Decrypt struct {
	Store            string
	KeystoreDir      string
	KeystorePassword string `json:"-"` // sensitive
	RedisAddr        string
	DurationDays     int64
}

// Client is the configuration of a confidential call client.
type Client struct {
	Mode                string
	DefaultReadFunction string
	Contract            Contract
	Signer              Signer
	Chain               Chain
	Relayer             Relayer
	Engine              Engine
	Decrypt             Decrypt
	Logger              Logger
	Metrics             Metrics
}

type Metrics struct {
	// TextfilePath receives the collected metrics after each command when set.
	TextfilePath string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "remote")
	v.SetDefault("read_function", "getCount")
	v.SetDefault("contract.registry", filepath.Join(util.GetProjectRootDir(), ContractsDefaultPath))
	v.SetDefault("signer.derivation_index", 0)
	v.SetDefault("chain.rpc_urls", "http://127.0.0.1:8545")
	v.SetDefault("chain.receipt_poll_interval", time.Second)
	v.SetDefault("chain.receipt_wait_timeout", 2*time.Minute)
	v.SetDefault("relayer.base_url", "http://127.0.0.1:3000")
	v.SetDefault("relayer.timeout", 30*time.Second)
	v.SetDefault("relayer.client_sign", true)
	v.SetDefault("engine.kind", "mock")
	v.SetDefault("engine.chain_id", 31337)
	v.SetDefault("decrypt.store", "memory")
	v.SetDefault("decrypt.keystore_dir", filepath.Join(os.TempDir(), "fhevm-client", "authorizations"))
	v.SetDefault("decrypt.redis_addr", "127.0.0.1:6379")
	v.SetDefault("decrypt.duration_days", 365)
	v.SetDefault("logger.level", zerolog.InfoLevel.String())
	v.SetDefault("logger.pretty_print_console", false)

	return v
}

// loadDotEnv reads .env from the working directory without overriding the
// environment, if it exists.
func loadDotEnv() {
	if err := gotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}
}

// DefaultClientConfigFromEnv returns the client config, overwritten by FHE_*
// environment variables and a local .env file.
func DefaultClientConfigFromEnv() Client {
	loadDotEnv()

	v := newViper()

	level, err := zerolog.ParseLevel(v.GetString("logger.level"))
	if err != nil {
		log.Warn().Err(err).Str("level", v.GetString("logger.level")).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}

	return Client{
		Mode:                v.GetString("mode"),
		DefaultReadFunction: v.GetString("read_function"),
		Contract: Contract{
			Name:     v.GetString("contract.name"),
			Address:  v.GetString("contract.address"),
			ABIPath:  v.GetString("contract.abi_path"),
			Registry: v.GetString("contract.registry"),
		},
		Signer: Signer{
			PrivateKey:         v.GetString("signer.private_key"),
			Mnemonic:           v.GetString("signer.mnemonic"),
			MnemonicPassphrase: v.GetString("signer.mnemonic_passphrase"),
			KeystorePath:       v.GetString("signer.keystore_path"),
			KeystorePassword:   v.GetString("signer.keystore_password"),
			DerivationIndex:    v.GetInt("signer.derivation_index"),
		},
		Chain: Chain{
			RPCURLs:             splitList(v.GetString("chain.rpc_urls")),
			ReceiptPollInterval: v.GetDuration("chain.receipt_poll_interval"),
			ReceiptWaitTimeout:  v.GetDuration("chain.receipt_wait_timeout"),
		},
		Relayer: Relayer{
			BaseURL:    v.GetString("relayer.base_url"),
			APIKey:     v.GetString("relayer.api_key"),
			Timeout:    v.GetDuration("relayer.timeout"),
			ClientSign: v.GetBool("relayer.client_sign"),
		},
		Engine: Engine{
			Kind:              v.GetString("engine.kind"),
			ChainID:           v.GetInt64("engine.chain_id"),
			VerifyingContract: v.GetString("engine.verifying_contract"),
		},
		Decrypt: Decrypt{
			Store:            v.GetString("decrypt.store"),
			KeystoreDir:      v.GetString("decrypt.keystore_dir"),
			KeystorePassword: v.GetString("decrypt.keystore_password"),
			RedisAddr:        v.GetString("decrypt.redis_addr"),
			DurationDays:     v.GetInt64("decrypt.duration_days"),
		},
		Metrics: Metrics{
			TextfilePath: v.GetString("metrics.textfile_path"),
		},
		Logger: Logger{
			Level:              level,
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
