package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/util"
)

const (
	ModeFlag     = "mode"
	ContractFlag = "contract"
	AddressFlag  = "address"
	ABIFlag      = "abi"
)

// WithClient builds a Client from cfg, runs f with it and releases it
// afterwards. The error returned by f is passed through.
func WithClient(ctx context.Context, cfg config.Client, f func(ctx context.Context, c *client.Client) error) error {
	config.ConfigureLogger(cfg.Logger)

	c, cleanup, err := client.InitClient(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize client")
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
		cleanup()
	}()

	ctx = util.WithLogger(ctx, map[string]string{
		"mode":     string(c.Mode()),
		"contract": c.Contract().Address.Hex(),
	})

	start := time.Now()
	err = f(ctx, c)
	util.LogFromContext(ctx).Debug().Dur("duration", time.Since(start)).Err(err).Msg("Command finished")

	if path := cfg.Metrics.TextfilePath; path != "" {
		if werr := c.Metrics().WriteTextfile(path); werr != nil {
			log.Warn().Err(werr).Msg("Failed to write metrics textfile")
		}
	}

	return err
}

// NewSubcommandGroup returns a command that only groups subCommands and
// prints its help when run on its own.
func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <subcommand>", name),
		Short: fmt.Sprintf("%s related subcommands", name),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}

// AddClientFlags registers the flags ClientConfig applies on top of the
// environment config.
func AddClientFlags(cmd *cobra.Command) {
	cmd.Flags().String(ModeFlag, "", "Client mode, local or remote (default from FHE_MODE)")
	cmd.Flags().String(ContractFlag, "", "Contract name in the registry or embedded ABIs")
	cmd.Flags().String(AddressFlag, "", "Contract address")
	cmd.Flags().String(ABIFlag, "", "Path to the contract ABI JSON")
}

// ClientConfig returns the environment config with the flags of
// AddClientFlags applied.
func ClientConfig(cmd *cobra.Command) config.Client {
	cfg := config.DefaultClientConfigFromEnv()

	override := func(flag string, target *string) {
		if cmd.Flags().Lookup(flag) == nil || !cmd.Flags().Changed(flag) {
			return
		}
		if v, err := cmd.Flags().GetString(flag); err == nil {
			*target = v
		}
	}

	override(ModeFlag, &cfg.Mode)
	override(ContractFlag, &cfg.Contract.Name)
	override(AddressFlag, &cfg.Contract.Address)
	override(ABIFlag, &cfg.Contract.ABIPath)

	return cfg
}
