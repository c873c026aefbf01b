package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-ethsigner/internal/api/httperrors"
	"github/chapool/go-ethsigner/internal/downstream"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

const contextKeyRawBody = "ethsigner.raw_body"

// SetRawBody stores the request body as received so pass-through handlers can
// forward it untouched.
func SetRawBody(c echo.Context, body []byte) {
	c.Set(contextKeyRawBody, body)
}

func RawBody(c echo.Context) []byte {
	b, _ := c.Get(contextKeyRawBody).([]byte)
	return b
}

// Relay writes a node response back to the client unmodified.
func Relay(c echo.Context, res *downstream.Response) error {
	header := c.Response().Header()
	for k, values := range res.Header {
		header.Del(k)
		for _, v := range values {
			header.Add(k, v)
		}
	}

	c.Response().WriteHeader(res.StatusCode)
	_, err := c.Response().Write(res.Body)

	return err
}

// WriteResult answers req with a successful JSON-RPC response.
func WriteResult(c echo.Context, id json.RawMessage, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return httperrors.InternalError(id, err)
	}

	return c.JSON(http.StatusOK, jsonrpc.NewResultResponse(id, raw))
}
