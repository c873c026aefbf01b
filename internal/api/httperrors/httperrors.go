package httperrors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github/chapool/go-ethsigner/internal/jsonrpc"
)

// HTTPError is returned by handlers and rendered by the server's error
// handler as a JSON-RPC error response carrying the original request id.
type HTTPError struct {
	Status   int
	ID       json.RawMessage
	RPCError jsonrpc.Error

	// Internal is logged but never sent to the client.
	Internal error
}

func NewHTTPError(status int, id json.RawMessage, rpcErr jsonrpc.Error) *HTTPError {
	return &HTTPError{
		Status:   status,
		ID:       id,
		RPCError: rpcErr,
	}
}

func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("HTTPError %d (%d: %s): %v", e.Status, e.RPCError.Code, e.RPCError.Message, e.Internal)
	}

	return fmt.Sprintf("HTTPError %d (%d: %s)", e.Status, e.RPCError.Code, e.RPCError.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// Wrap attaches the underlying cause.
func (e *HTTPError) Wrap(err error) *HTTPError {
	e.Internal = err
	return e
}

func BadRequest(id json.RawMessage, rpcErr jsonrpc.Error) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, id, rpcErr)
}

func InvalidParams(id json.RawMessage) *HTTPError {
	return BadRequest(id, jsonrpc.ErrInvalidParams)
}

func InternalError(id json.RawMessage, err error) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, id, jsonrpc.ErrInternalError).Wrap(err)
}

func GatewayTimeout(id json.RawMessage, err error) *HTTPError {
	return NewHTTPError(http.StatusGatewayTimeout, id, jsonrpc.ErrConnectionToDownstreamNodeTimedOut).Wrap(err)
}

func RequestEntityTooLarge() *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, nil, jsonrpc.ErrInvalidRequest)
}
