package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"github/chapool/go-ethsigner/cmd/keystore"
	"github/chapool/go-ethsigner/cmd/probe"
	"github/chapool/go-ethsigner/cmd/server"
	"github/chapool/go-ethsigner/internal/config"
)

const dotEnvFile = ".env"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "ethsigner",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

A JSON-RPC proxy that signs eth_sendTransaction and eea_sendTransaction
requests with a locally held key and passes everything else through to
the downstream Ethereum node.
Configuration is read from flags, ETHSIGNER_* environment variables,
an optional .env file and an optional TOML config file.`, config.ModuleName),
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadDotEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	config.AddServerFlags(rootCmd.PersistentFlags())

	// attach the subcommands
	rootCmd.AddCommand(server.Commands()...)
	rootCmd.AddCommand(
		keystore.New(),
		probe.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}

// loadDotEnv fills in environment variables from ./.env without overriding
// the ones already set.
func loadDotEnv() error {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return nil //nolint:nilerr
	}

	return gotenv.Load(dotEnvFile)
}
