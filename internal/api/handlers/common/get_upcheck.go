package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
)

func GetUpcheckRoute(s *api.Server) *echo.Route {
	return s.Router.Root.GET("/upcheck", getUpcheckHandler(s))
}

// Liveness only. The downstream node is deliberately not probed.
func getUpcheckHandler(_ *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "I'm up!")
	}
}
