package internalresponse

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

const MethodNetVersion = "net_version"

func NewNetVersionHandler(s *api.Server) api.RequestHandler {
	version := strconv.FormatInt(s.Config.ChainID, 10)

	return api.RequestHandlerFunc(func(c echo.Context, req *jsonrpc.Request) error {
		return api.WriteResult(c, req.ID, version)
	})
}
