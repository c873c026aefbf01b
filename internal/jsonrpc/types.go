package jsonrpc

import (
	"encoding/json"
)

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

// Request is a single JSON-RPC 2.0 request.
//
// ID and Params are kept as raw JSON so that they can be echoed to the
// downstream node and back to the client byte for byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// HasParams reports whether the request carries a non-null params member.
func (r *Request) HasParams() bool {
	return len(r.Params) > 0 && string(r.Params) != "null"
}

// NewRequest builds a request with the given id and positional params.
func NewRequest(id json.RawMessage, method string, params ...interface{}) (*Request, error) {
	if params == nil {
		params = []interface{}{}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResultResponse wraps an already marshalled result.
func NewResultResponse(id json.RawMessage, result json.RawMessage) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Result:  result,
	}
}

// NewErrorResponse wraps err for the request identified by id.
func NewErrorResponse(id json.RawMessage, err Error) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Error:   &err,
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
