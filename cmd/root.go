package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/tomi204/fhevm-client/cmd/env"
	"github/tomi204/fhevm-client/cmd/keystore"
	"github/tomi204/fhevm-client/cmd/mutate"
	"github/tomi204/fhevm-client/cmd/probe"
	"github/tomi204/fhevm-client/cmd/read"
	"github/tomi204/fhevm-client/cmd/session"
	"github/tomi204/fhevm-client/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "fhe",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Reads and mutates encrypted state of FHE contracts, either locally through an
encryption engine and a chain RPC node or through a relayer session.
Requires configuration through ENV.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		env.New(),
		keystore.New(),
		mutate.New(),
		probe.New(),
		read.New(),
		session.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
