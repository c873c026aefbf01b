package server

import (
	"context"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/util"
	"github/chapool/go-ethsigner/internal/util/command"
	"github/chapool/go-ethsigner/internal/wallet/signer"
)

// signerFactory builds the signing back-end once configuration is loaded.
type signerFactory func(ctx context.Context, cfg config.Server) (signer.Signer, error)

// Commands returns one sub-command per signer back-end. Each starts the proxy.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		newCommand("file-based-signer", "Sign with a key held in a V3 keystore file", config.AddFileSignerFlags, fileBasedSigner),
		newCommand("hashicorp-signer", "Sign with a key stored in a Hashicorp Vault KV v2 secret", config.AddHashicorpSignerFlags, hashicorpSigner),
		newCommand("hd-signer", "Sign with a key derived from a keystore encrypted BIP39 mnemonic", config.AddHDSignerFlags, hdSigner),
		newCommand("gcp-secret-manager-signer", "Sign with a key stored in Google Secret Manager", config.AddGCPSignerFlags, gcpSigner),
	}
}

func newCommand(use string, short string, addFlags func(*cobra.Command), factory signerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `

Starts the JSON-RPC proxy. eth_accounts, net_version, eth_sendTransaction
and eea_sendTransaction are served by the proxy, every other request is
relayed to the downstream node unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, factory)
		},
	}

	addFlags(cmd)

	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Server, error) {
	cfg, err := config.LoadFromCommand(cmd)
	if err != nil {
		return config.Server{}, errors.Wrap(err, "failed to load configuration")
	}

	util.ConfigureLogger(cfg.Logger)

	if err := cfg.Validate(); err != nil {
		return config.Server{}, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func runServer(cmd *cobra.Command, factory signerFactory) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sgn, err := factory(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("address", sgn.Address().Hex()).
		Int64("chain_id", cfg.ChainID).
		Str("downstream", cfg.Downstream.URL).
		Msg("Signer initialized")

	return command.WithServer(ctx, cfg, sgn, func(_ context.Context, s *api.Server) error {
		if err := s.Start(); err != nil {
			return errors.Wrap(err, "failed to start server")
		}

		stopped := make(chan struct{})
		shutdown.AddWithParam(func(sig os.Signal) {
			log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
			close(stopped)
		})

		shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		<-stopped

		return nil
	})
}
