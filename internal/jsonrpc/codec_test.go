package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/jsonrpc"
)

func TestParseRequest(t *testing.T) {
	req, err := jsonrpc.ParseRequest([]byte(`{"jsonrpc":"2.0","id":77,"method":"eth_blockNumber","params":[]}`))
	require.NoError(t, err)

	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, json.RawMessage(`77`), req.ID)
	assert.Equal(t, "eth_blockNumber", req.Method)
	assert.Equal(t, json.RawMessage(`[]`), req.Params)
	assert.True(t, req.HasParams())
}

func TestParseRequestIDIsPreservedVerbatim(t *testing.T) {
	tests := map[string]string{
		"number":       `1.0e2`,
		"string":       `"abc-123"`,
		"null":         `null`,
		"large number": `123456789012345678901234567890`,
	}

	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := jsonrpc.ParseRequest([]byte(`{"jsonrpc":"2.0","id":` + id + `,"method":"m"}`))
			require.NoError(t, err)
			assert.Equal(t, id, string(req.ID))
			assert.False(t, req.HasParams())
		})
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := map[string]struct {
		body string
		want jsonrpc.Error
	}{
		"malformed":       {`{"jsonrpc":"2.0",`, jsonrpc.ErrParseError},
		"empty":           {``, jsonrpc.ErrParseError},
		"not an object":   {`[1,2]`, jsonrpc.ErrInvalidRequest},
		"missing jsonrpc": {`{"id":1,"method":"m"}`, jsonrpc.ErrInvalidRequest},
		"wrong version":   {`{"jsonrpc":"1.0","id":1,"method":"m"}`, jsonrpc.ErrInvalidRequest},
		"missing method":  {`{"jsonrpc":"2.0","id":1}`, jsonrpc.ErrInvalidRequest},
		"method not text": {`{"jsonrpc":"2.0","id":1,"method":5}`, jsonrpc.ErrInvalidRequest},
		"object id":       {`{"jsonrpc":"2.0","id":{},"method":"m"}`, jsonrpc.ErrInvalidRequest},
		"boolean id":      {`{"jsonrpc":"2.0","id":true,"method":"m"}`, jsonrpc.ErrInvalidRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := jsonrpc.ParseRequest([]byte(tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRequestKeepsIDOnInvalidRequest(t *testing.T) {
	req, err := jsonrpc.ParseRequest([]byte(`{"id":"x","method":"m"}`))
	require.ErrorIs(t, err, jsonrpc.ErrInvalidRequest)
	require.NotNil(t, req)
	assert.Equal(t, `"x"`, string(req.ID))
}

func TestRequestRoundTrip(t *testing.T) {
	requests := []*jsonrpc.Request{
		{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "eth_accounts"},
		{JSONRPC: "2.0", ID: json.RawMessage(`"a"`), Method: "eth_call", Params: json.RawMessage(`[{"to":"0x00"},"latest"]`)},
		{JSONRPC: "2.0", ID: json.RawMessage(`null`), Method: "x", Params: json.RawMessage(`{"k":1}`)},
	}

	for _, req := range requests {
		raw, err := jsonrpc.EncodeRequest(req)
		require.NoError(t, err)

		parsed, err := jsonrpc.ParseRequest(raw)
		require.NoError(t, err)
		assert.Equal(t, req, parsed)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	responses := []*jsonrpc.Response{
		jsonrpc.NewResultResponse(json.RawMessage(`7`), json.RawMessage(`"0x10"`)),
		jsonrpc.NewErrorResponse(json.RawMessage(`"q"`), jsonrpc.ErrNonceTooLow),
		jsonrpc.NewErrorResponse(nil, jsonrpc.Error{Code: -1, Message: "m", Data: json.RawMessage(`{"a":[1]}`)}),
	}

	for _, res := range responses {
		raw, err := jsonrpc.EncodeResponse(res)
		require.NoError(t, err)

		parsed, err := jsonrpc.ParseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, res, parsed)
	}
}

func TestEncodeResponseNullID(t *testing.T) {
	raw, err := jsonrpc.EncodeResponse(jsonrpc.NewErrorResponse(nil, jsonrpc.ErrParseError))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(raw))
}

func TestErrorCodesArePinned(t *testing.T) {
	assert.Equal(t, -32700, jsonrpc.ErrParseError.Code)
	assert.Equal(t, -32600, jsonrpc.ErrInvalidRequest.Code)
	assert.Equal(t, -32602, jsonrpc.ErrInvalidParams.Code)
	assert.Equal(t, -32603, jsonrpc.ErrInternalError.Code)
	assert.Equal(t, -32000, jsonrpc.ErrNonceTooLow.Code)
	assert.Equal(t, -32001, jsonrpc.ErrSigningFromIsNotAnUnlockedAccount.Code)
	assert.Equal(t, -32002, jsonrpc.ErrTransactionUpfrontCostExceedsBalance.Code)
	assert.Equal(t, -32010, jsonrpc.ErrConnectionToDownstreamNodeTimedOut.Code)
}
