package internalresponse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

const MethodEthAccounts = "eth_accounts"

// NewEthAccountsHandler answers with the single address the proxy signs for.
// Absent, null or empty array params are accepted; anything else is invalid.
func NewEthAccountsHandler(s *api.Server) api.RequestHandler {
	return api.RequestHandlerFunc(func(c echo.Context, req *jsonrpc.Request) error {
		if req.HasParams() && !isEmptyArray(req.Params) {
			return httperrors.InvalidParams(req.ID)
		}

		return api.WriteResult(c, req.ID, []string{strings.ToLower(s.Signer.Address().Hex())})
	})
}

func isEmptyArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return false
	}

	return len(bytes.TrimSpace(trimmed[1:len(trimmed)-1])) == 0
}
