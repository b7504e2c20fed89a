package mutate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/contract"
	"github/tomi204/fhevm-client/internal/util/command"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <function> [values...]",
		Short: "Encrypts values and sends a state-changing call",
		Long: `Sends a state-changing call. Values are given by ABI input position;
encrypted inputs take their cleartext and the proof input is filled in.
Values parse as JSON where possible (numbers, booleans, arrays), anything
else is passed as a string.`,
		Example: `  fhe mutate increment 5
  fhe mutate confidentialTransfer 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 100 --contract ConfidentialToken`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := contract.MutateRequest{
				FunctionName: args[0],
				Values:       ParseValues(args[1:]),
			}

			return command.WithClient(cmd.Context(), command.ClientConfig(cmd), func(ctx context.Context, c *client.Client) error {
				res, err := c.Mutate(ctx, req)
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

// ParseValues decodes every argument as JSON, keeping numbers as json.Number.
// Arguments that are not valid JSON stay plain strings.
func ParseValues(args []string) []any {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			values = append(values, arg)
			continue
		}
		values = append(values, v)
	}

	return values
}
