package env

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/util/command"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Prints the client config resolved from ENV",
		Long: `Prints the client config resolved from ENV and flags as JSON.
Secrets (keys, mnemonics, passwords) are never printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := command.ClientConfig(cmd)

			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	command.AddClientFlags(cmd)

	return cmd
}
