package probe

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/fhe/marshal"
	"github/tomi204/fhevm-client/internal/util/command"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Checks the local configuration",
		Long: `Resolves the contract and the signer from the configuration without
touching the network. Exits non-zero when either cannot be resolved.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}

			cfg := command.ClientConfig(cmd)
			config.ConfigureLogger(cfg.Logger)

			return runLiveness(cmd.OutOrStdout(), cfg, verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print every contract function and its encrypted inputs")
	command.AddClientFlags(cmd)

	return cmd
}

func runLiveness(out io.Writer, cfg config.Client, verbose bool) error {
	descriptor, err := client.NewDescriptor(cfg)
	if err != nil {
		return err
	}

	key, err := client.NewSigner(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "mode:     %s\n", cfg.Mode)
	fmt.Fprintf(out, "contract: %s %s\n", descriptor.Name, descriptor.Address.Hex())
	fmt.Fprintf(out, "signer:   %s\n", key.Address().Hex())

	if !verbose {
		return nil
	}

	for _, fn := range descriptor.ABI.Functions() {
		fmt.Fprintf(out, "  %s (%s)\n", fn.Name, fn.StateMutability)
		for i, in := range fn.Inputs {
			if marshal.IsEncryptedType(in.InternalType) {
				fmt.Fprintf(out, "    [%d] %s %s -> %s\n", i, in.Name, in.InternalType, marshal.ClassifyEncryptionMethod(in.InternalType))
			}
		}
	}

	return nil
}
