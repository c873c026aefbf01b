package probe

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/downstream"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/metrics"
)

func newDownstream() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downstream",
		Short: "Checks that the downstream node answers JSON-RPC requests",
		Long: `Sends net_version to the configured downstream node using the
same transport and timeout as the proxy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromCommand(cmd)
			if err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool(verboseFlag)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return runDownstream(ctx, cfg, verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runDownstream(ctx context.Context, cfg config.Server, verbose bool) error {
	client, err := downstream.NewClient(ctx, cfg.Downstream.URL, cfg.Downstream.Timeout, metrics.New())
	if err != nil {
		return err
	}
	defer client.Close()

	req, err := jsonrpc.NewRequest([]byte("1"), "net_version")
	if err != nil {
		return err
	}

	body, err := jsonrpc.EncodeRequest(req)
	if err != nil {
		return err
	}

	res, err := client.Forward(ctx, http.MethodPost, "/", "", http.Header{}, body)
	if err != nil {
		return errors.Wrap(err, "downstream node is not reachable")
	}

	parsed, err := jsonrpc.ParseResponse(res.Body)
	if err != nil {
		return errors.Wrapf(err, "downstream node answered %d with an unreadable body", res.StatusCode)
	}
	if parsed.Error != nil {
		return errors.Wrap(parsed.Error, "downstream node rejected net_version")
	}

	if verbose {
		log.Info().Str("url", cfg.Downstream.URL).RawJSON("net_version", parsed.Result).Msg("Downstream node answered")
	}

	if cfg.ChainID > 0 {
		log.Debug().Int64("chain_id", cfg.ChainID).Msg("Configured chain id")
	}

	return nil
}
