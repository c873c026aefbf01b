package passthrough_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/jsonrpc"
	"github/chapool/go-ethsigner/internal/test"
)

func TestPassThroughRelaysNodeResponseUnmodified(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		nodeBody := []byte("{\"jsonrpc\":\"2.0\",\"id\":77,\"result\":{\"number\":\"0x1b4\"}}\n")
		node.Respond("eth_getBlockByNumber", test.StubResponse{
			Status: http.StatusOK,
			Header: http.Header{"X-Node": []string{"besu"}},
			Body:   nodeBody,
		})

		body := `{"jsonrpc":"2.0","id":77,"method":"eth_getBlockByNumber","params":["0x1b4", true]}`
		res := test.PerformRPC(t, s, body)

		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, nodeBody, res.Body.Bytes())
		assert.Equal(t, "besu", res.Header().Get("X-Node"))
		assert.Equal(t, "application/json", res.Header().Get("Content-Type"))

		reqs := node.Requests("eth_getBlockByNumber")
		require.Len(t, reqs, 1)
		assert.Equal(t, body, string(reqs[0].Body))
		assert.Equal(t, http.MethodPost, reqs[0].HTTPMethod)
	})
}

func TestPassThroughRelaysNodeErrorStatus(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond("eth_call", test.StubResponse{
			Status: http.StatusInternalServerError,
			Body:   []byte(`not json at all`),
		})

		res := test.PerformRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"eth_call","params":[]}`)

		assert.Equal(t, http.StatusInternalServerError, res.Code)
		assert.Equal(t, "not json at all", res.Body.String())
	})
}

func TestPassThroughTimeout(t *testing.T) {
	cfg := test.DefaultTestConfig()
	cfg.Downstream.Timeout = 100 * time.Millisecond

	test.WithTestServerConfigurable(t, cfg, func(s *api.Server, node *test.StubNode) {
		node.Respond("eth_blockNumber", test.StubResponse{
			Result: []byte(`"0x1"`),
			Delay:  time.Second,
		})

		res := test.PerformRPC(t, s, `{"jsonrpc":"2.0","id":"slow","method":"eth_blockNumber"}`)

		parsed := test.RequireRPCError(t, res, http.StatusGatewayTimeout, jsonrpc.CodeConnectionToDownstreamTimedOut)
		assert.JSONEq(t, `"slow"`, string(parsed.ID))
		assert.Equal(t, "application/json", res.Header().Get("Content-Type"))
	})
}

func TestPassThroughNonRPCPath(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		node.Respond("GET /liveness", test.StubResponse{
			Header: http.Header{"Content-Type": []string{"text/plain"}},
			Body:   []byte("alive"),
		})

		res := test.PerformRequest(t, s, http.MethodGet, "/liveness?verbose=1", nil, nil)

		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "alive", res.Body.String())
		assert.Equal(t, "text/plain", res.Header().Get("Content-Type"))

		reqs := node.Requests("GET /liveness")
		require.Len(t, reqs, 1)
		assert.Equal(t, "verbose=1", reqs[0].RawQuery)
	})
}

func TestPassThroughRegistersEveryMethod(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, node *test.StubNode) {
		methods := map[string]bool{}
		for _, r := range s.Router.Routes {
			if r.Path == "/*" {
				methods[r.Method] = true
			}
		}

		for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			assert.True(t, methods[m], m)
		}

		node.Respond("DELETE /admin/peers", test.StubResponse{Body: []byte("removed")})

		res := test.PerformRequest(t, s, http.MethodDelete, "/admin/peers", nil, nil)

		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "removed", res.Body.String())
	})
}
