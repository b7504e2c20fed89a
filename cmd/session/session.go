package session

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
		Use:   "session",
		Short: "Opens a relayer session and prints its metadata",
		Long: `Creates the relayer session, signs its authorization when the relayer
asks for one, and prints the session metadata. Local clients have no session
and print an empty object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithClient(cmd.Context(), command.ClientConfig(cmd), func(ctx context.Context, c *client.Client) error {
				if _, err := c.Session(ctx); err != nil {
					return err
				}

				out, err := json.MarshalIndent(c.Metadata(), "", "  ")
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
