package read

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/util/command"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [function]",
		Short: "Reads and decrypts an encrypted value",
		Long: `Calls a view function returning an encrypted handle and prints the
decrypted cleartext. Without a function name the configured default read
function is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			functionName := ""
			if len(args) == 1 {
				functionName = args[0]
			}

			return command.WithClient(cmd.Context(), command.ClientConfig(cmd), func(ctx context.Context, c *client.Client) error {
				res, err := c.Read(ctx, functionName)
				if err != nil {
					return err
				}

				out, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			})
		},
	}

	command.AddClientFlags(cmd)

	return cmd
}
