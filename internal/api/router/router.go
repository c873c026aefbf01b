package router

import (
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/handlers"
	"github/chapool/go-ethsigner/internal/api/handlers/passthrough"
)

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = HTTPErrorHandler

	s.Echo.Pre(middleware.RemoveTrailingSlash())

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(requestLogger())

	if len(s.Config.HTTP.CORSOrigins) > 0 {
		s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.Config.HTTP.CORSOrigins,
			AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		}))
	} else {
		log.Debug().Msg("Not using CORS middleware")
	}

	s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "ethsigner",
		Subsystem:  "http",
		Registerer: s.Metrics.Registry,
	}))

	s.Echo.Use(middleware.BodyLimit(fmt.Sprintf("%dB", s.Config.HTTP.MaxBodyBytes)))

	s.Router = &api.Router{
		Routes: nil, // will be populated by handlers.AttachAllRoutes(s)
		Root:   s.Echo.Group(""),
	}

	s.Methods = api.NewMethodRouter(passthrough.HandlerName, passthrough.NewHandler(s))

	handlers.AttachAllRoutes(s)

	if s.Config.Metrics.Enabled {
		initMetrics(s)
	}
}

func initMetrics(s *api.Server) {
	s.MetricsEcho = echo.New()
	s.MetricsEcho.HideBanner = true
	s.MetricsEcho.HidePort = true

	s.MetricsEcho.Use(middleware.Recover())
	s.MetricsEcho.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.Metrics.Registry,
	}))
}
