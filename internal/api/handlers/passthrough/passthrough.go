package passthrough

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/downstream"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/util"
)

// HandlerName labels pass-through traffic in metrics.
const HandlerName = "passthrough"

// NewHandler relays a JSON-RPC request to the node byte for byte and relays
// the node's answer the same way.
func NewHandler(s *api.Server) api.RequestHandler {
	return api.RequestHandlerFunc(func(c echo.Context, req *jsonrpc.Request) error {
		util.LogFromContext(c.Request().Context()).Debug().Msg("Passing request through to downstream node")

		return forward(s, c, req.ID, api.RawBody(c))
	})
}

// AnyRoute relays every request outside the JSON-RPC endpoint unparsed.
func AnyRoute(s *api.Server) []*echo.Route {
	return s.Router.Root.Any("/*", anyHandler(s))
}

func anyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := readBody(c)
		if err != nil {
			return err
		}

		s.Metrics.ObserveRequest(HandlerName)

		return forward(s, c, nil, body)
	}
}

func forward(s *api.Server, c echo.Context, id []byte, body []byte) error {
	r := c.Request()

	res, err := s.Downstream.Forward(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		if downstream.IsTransportError(err) {
			return httperrors.GatewayTimeout(id, err)
		}

		return httperrors.InternalError(id, err)
	}

	return api.Relay(c, res)
}
