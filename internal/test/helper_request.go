package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

// PerformRequest sends a request through the server's router. body may be a
// string, a byte slice, nil or any value to be marshalled as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body interface{}, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if headers != nil {
		req.Header = headers.Clone()
	}
	if body != nil && req.Header.Get(echo.HeaderContentType) == "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// PerformRPC posts body to the JSON-RPC endpoint.
func PerformRPC(t *testing.T, s *api.Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	return PerformRequest(t, s, http.MethodPost, "/", body, nil)
}

func ParseRPCResponse(t *testing.T, res *httptest.ResponseRecorder) *jsonrpc.Response {
	t.Helper()

	parsed, err := jsonrpc.ParseResponse(res.Body.Bytes())
	require.NoError(t, err, "body: %s", res.Body.String())

	return parsed
}

// RequireRPCError asserts an error response with the given status and code.
func RequireRPCError(t *testing.T, res *httptest.ResponseRecorder, status int, code int) *jsonrpc.Response {
	t.Helper()

	require.Equal(t, status, res.Code, "body: %s", res.Body.String())

	parsed := ParseRPCResponse(t, res)
	require.NotNil(t, parsed.Error, "body: %s", res.Body.String())
	require.Equal(t, code, parsed.Error.Code)

	return parsed
}
