package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ethsigner/internal/config"
)

const upcheckTimeout = 5 * time.Second

func newUpcheck() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upcheck",
		Short: "Checks that a running proxy answers on its upcheck endpoint",
		Long: `Checks that a running proxy answers on its upcheck endpoint.

Exits with code 1 when the proxy is unreachable or does not answer 200.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromCommand(cmd)
			if err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool(verboseFlag)

			return runUpcheck(cmd.Context(), fmt.Sprintf("http://%s/upcheck", cfg.HTTP.ListenAddress()), verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runUpcheck(ctx context.Context, url string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, upcheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "proxy is not reachable")
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024)) //nolint:mnd

	if verbose {
		log.Info().Str("url", url).Int("status", res.StatusCode).Str("body", string(body)).Msg("Upcheck response")
	}

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("upcheck answered %d", res.StatusCode)
	}

	return nil
}
