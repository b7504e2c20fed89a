package keystore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/internal/client"
	"github/tomi204/fhevm-client/internal/config"
	"github/tomi204/fhevm-client/internal/util/command"
	"github/tomi204/fhevm-client/internal/wallet/keystore"
	"golang.org/x/term"
)

const (
	outFlag   = "out"
	lightFlag = "light"
)

// stdin is shared so piped input is not lost between prompts.
var stdin = bufio.NewReader(os.Stdin)

func New() *cobra.Command {
	return command.NewSubcommandGroup("keystore",
		newSeal(),
		newAddress(),
	)
}

func newSeal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seals a mnemonic into an encrypted keystore file",
		Long: `Prompts for a mnemonic and a password and writes them as a scrypt
encrypted keystore file. Point FHE_SIGNER_KEYSTORE_PATH at the file and set
FHE_SIGNER_KEYSTORE_PASSWORD to use it as the signer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(outFlag)
			if err != nil {
				return err
			}
			light, err := cmd.Flags().GetBool(lightFlag)
			if err != nil {
				return err
			}

			mnemonic, err := prompt(cmd.ErrOrStderr(), "Mnemonic: ")
			if err != nil {
				return err
			}
			password, err := prompt(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			confirm, err := prompt(cmd.ErrOrStderr(), "Repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			params := keystore.DefaultScryptParams()
			if light {
				params = keystore.LightScryptParams()
			}

			if err := keystore.WriteFile(path, []byte(mnemonic), password, params); err != nil {
				return err
			}

			return printAddress(cmd.OutOrStdout(), path, password)
		},
	}

	cmd.Flags().StringP(outFlag, "o", "signer.keystore.json", "Keystore file to write")
	cmd.Flags().Bool(lightFlag, false, "Use light scrypt parameters (faster, weaker)")

	return cmd
}

func newAddress() *cobra.Command {
	return &cobra.Command{
		Use:   "address <file>",
		Short: "Prints the signer address of a keystore file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := prompt(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			return printAddress(cmd.OutOrStdout(), args[0], password)
		},
	}
}

func printAddress(out io.Writer, path string, password string) error {
	cfg := config.DefaultClientConfigFromEnv()
	cfg.Signer = config.Signer{
		KeystorePath:     path,
		KeystorePassword: password,
		DerivationIndex:  cfg.Signer.DerivationIndex,
	}

	key, err := client.NewSigner(cfg)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, key.Address().Hex())
	return err
}

// prompt reads one line without echo from a terminal, or a plain line when
// stdin is piped.
func prompt(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", errors.Wrap(err, "failed to read input")
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "failed to read input")
	}

	return strings.TrimSpace(line), nil
}
