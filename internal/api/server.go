package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/data/local"
	"github/chapool/go-ethsigner/internal/downstream"
	"github/chapool/go-ethsigner/internal/metrics"
	"github/chapool/go-ethsigner/internal/wallet/nonce"
	"github/chapool/go-ethsigner/internal/wallet/signer"
	"github/chapool/go-ethsigner/internal/wallet/transaction"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type Router struct {
	Routes []*echo.Route
	Root   *echo.Group
}

// Server is a central struct keeping all the dependencies.
// Echo, Router, Methods and MetricsEcho are set up by router.Init(s).
type Server struct {
	Echo        *echo.Echo
	Router      *Router
	Methods     *MethodRouter
	MetricsEcho *echo.Echo

	Config     config.Server
	Clock      time2.Clock
	Signer     signer.Signer
	Serializer *transaction.Serializer
	Downstream *downstream.Client
	Nonces     *nonce.Manager
	Local      *local.Service
	Metrics    *metrics.Service
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

// InitNewServer wires every component around sgn. The server takes ownership
// of sgn and closes it on Shutdown.
func InitNewServer(ctx context.Context, cfg config.Server, sgn signer.Signer) (*Server, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(sgn, "signer"),
	).Check(); err != nil {
		return nil, err
	}

	s := NewServer(cfg)
	s.Clock = time2.DefaultClock
	s.Signer = sgn
	s.Metrics = metrics.New()
	s.Nonces = nonce.NewManager()
	s.Serializer = transaction.NewSerializer(sgn, cfg.ChainID, cfg.SigningWorkers)
	s.Local = local.NewService(cfg.DataPath, s.Clock)

	client, err := downstream.NewClient(ctx, cfg.Downstream.URL, cfg.Downstream.Timeout, s.Metrics)
	if err != nil {
		return nil, err
	}
	s.Downstream = client

	if _, err := s.Local.Record(cfg.ChainID, sgn.Address()); err != nil {
		log.Warn().Err(err).Msg("Failed to record state in data path")
	}

	return s, nil
}

func (s *Server) Ready() bool {
	ready := s.Echo != nil &&
		s.Router != nil &&
		s.Methods != nil &&
		s.Signer != nil &&
		s.Serializer != nil &&
		s.Downstream != nil &&
		s.Nonces != nil &&
		s.Metrics != nil

	if !ready {
		log.Debug().Msg("Server is not fully initialized")
	}

	return ready
}

// Start binds the listeners and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := listenAndServe(s.Echo, s.Config.HTTP.ListenAddress()); err != nil {
		return err
	}

	log.Info().Str("address", s.Addr()).Str("signer", s.Signer.Address().Hex()).Msg("JSON-RPC proxy listening")

	if s.MetricsEcho != nil {
		if err := listenAndServe(s.MetricsEcho, s.Config.Metrics.ListenAddress()); err != nil {
			return err
		}

		log.Info().Str("address", s.MetricsEcho.ListenerAddr().String()).Msg("Metrics endpoint listening")
	}

	return nil
}

// Addr is the address the JSON-RPC listener is bound to.
func (s *Server) Addr() string {
	if addr := s.Echo.ListenerAddr(); addr != nil {
		return addr.String()
	}

	return ""
}

func listenAndServe(e *echo.Echo, address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	e.Listener = l

	go func() {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", address).Msg("Echo server stopped")
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down server")

	var errGrp errgroup.Group

	for _, e := range []*echo.Echo{s.Echo, s.MetricsEcho} {
		if e == nil {
			continue
		}

		errGrp.Go(func() error {
			if err := e.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Failed to shutdown echo server")
				return err
			}
			return nil
		})
	}

	err := errGrp.Wait()

	if s.Downstream != nil {
		s.Downstream.Close()
	}

	if s.Signer != nil {
		log.Debug().Msg("Wiping signing key")
		err = multierr.Append(err, s.Signer.Close())
	}

	return err
}
