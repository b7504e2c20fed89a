package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/util/command"
)

const readinessTimeout = 30 * time.Second

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Checks the remote dependencies",
		Long: `Remote mode opens a relayer session. Local mode queries the chain ID of
the RPC node and initializes the encryption engine.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), readinessTimeout)
			defer cancel()

			cfg := command.ClientConfig(cmd)
			if client.Mode(cfg.Mode) == client.ModeLocal {
				config.ConfigureLogger(cfg.Logger)
				return runLocalReadiness(ctx, cmd.OutOrStdout(), cfg, verbose)
			}

			return command.WithClient(ctx, cfg, func(ctx context.Context, c *client.Client) error {
				session, err := c.Session(ctx)
				if err != nil {
					return errors.Wrap(err, "relayer is not ready")
				}

				fmt.Fprintf(cmd.OutOrStdout(), "relayer: ok (%s)\n", session.State)
				if verbose {
					for k, v := range c.Metadata() {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", k, v)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print session metadata and chain details")
	command.AddClientFlags(cmd)

	return cmd
}

func runLocalReadiness(ctx context.Context, out io.Writer, cfg config.Client, verbose bool) error {
	rpc, cleanup, err := client.NewRPCClient(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "RPC node is not ready")
	}
	fmt.Fprintln(out, "rpc: ok")
	if verbose {
		fmt.Fprintf(out, "  chain id: %s\n", chainID)
	}

	provider, err := client.NewEngineProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	if _, err := provider.Get(ctx); err != nil {
		return errors.Wrap(err, "encryption engine is not ready")
	}
	fmt.Fprintln(out, "engine: ok")

	return nil
}
