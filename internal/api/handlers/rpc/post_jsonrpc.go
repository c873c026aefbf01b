package rpc

import (
	"errors"
	"io"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/util"
)

func PostJSONRPCRoute(s *api.Server) *echo.Route {
	return s.Router.Root.POST("/", postJSONRPCHandler(s))
}

func postJSONRPCHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			// BodyLimit surfaces as an *echo.HTTPError with status 413
			return err
		}

		api.SetRawBody(c, body)

		req, err := jsonrpc.ParseRequest(body)
		if err != nil {
			var id []byte
			if req != nil {
				id = req.ID
			}

			rpcErr := jsonrpc.ErrInvalidRequest
			errors.As(err, &rpcErr)

			s.Metrics.ObserveRequest("invalid")
			return httperrors.BadRequest(id, rpcErr).Wrap(err)
		}

		name, handler := s.Methods.LookupNamed(req.Method)
		s.Metrics.ObserveRequest(name)

		ctx := c.Request().Context()
		l := util.LogFromContext(ctx).With().Str("rpc_method", req.Method).RawJSON("rpc_id", idForLog(req.ID)).Logger()
		c.SetRequest(c.Request().WithContext(l.WithContext(ctx)))

		l.Debug().Str("handler", name).Msg("Dispatching JSON-RPC request")

		return handler.Handle(c, req)
	}
}

func idForLog(id []byte) []byte {
	if len(id) == 0 {
		return []byte("null")
	}

	return id
}
