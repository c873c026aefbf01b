package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/router"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/wallet/signer"
)

const shutdownTimeout = 10 * time.Second

func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <subcommand>", name),
		Short: fmt.Sprintf("%s related subcommands", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}

// WithServer wires a server around sgn, runs f and shuts the server down
// again. The server owns sgn from here on.
func WithServer(ctx context.Context, cfg config.Server, sgn signer.Signer, f func(ctx context.Context, s *api.Server) error) error {
	s, err := api.InitNewServer(ctx, cfg, sgn)
	if err != nil {
		if closeErr := sgn.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close signer")
		}
		return errors.Wrap(err, "failed to initialize server")
	}

	router.Init(s)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully shut down server")
		}
	}()

	return f(ctx, s)
}
