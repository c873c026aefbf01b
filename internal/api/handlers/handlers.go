package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/handlers/common"
	"github/chapool/go-ethsigner/internal/api/handlers/internalresponse"
	"github/chapool/go-ethsigner/internal/api/handlers/passthrough"
	"github/chapool/go-ethsigner/internal/api/handlers/rpc"
	"github/chapool/go-ethsigner/internal/api/handlers/sendtransaction"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		common.GetUpcheckRoute(s),
		rpc.PostJSONRPCRoute(s),
	}
	s.Router.Routes = append(s.Router.Routes, passthrough.AnyRoute(s)...)

	// JSON-RPC methods answered or rewritten by the proxy
	s.Methods.Add(internalresponse.MethodEthAccounts, internalresponse.NewEthAccountsHandler(s))
	s.Methods.Add(internalresponse.MethodNetVersion, internalresponse.NewNetVersionHandler(s))
	s.Methods.Add(sendtransaction.MethodEthSendTransaction, sendtransaction.NewHandler(s, sendtransaction.Public))
	s.Methods.Add(sendtransaction.MethodEeaSendTransaction, sendtransaction.NewHandler(s, sendtransaction.Private))
}
