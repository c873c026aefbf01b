package jsonrpc

import (
	"bytes"
	"encoding/json"
)

type requestEnvelope struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// ParseRequest decodes a single JSON-RPC request. Malformed JSON yields
// ErrParseError, a well-formed document that is not a usable request yields
// ErrInvalidRequest. The returned request carries whatever id could be
// recovered so that error replies can still echo it.
func ParseRequest(body []byte) (*Request, error) {
	if !json.Valid(body) {
		return nil, ErrParseError
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidRequest
	}

	var env requestEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, ErrInvalidRequest
	}

	req := &Request{ID: env.ID, Params: env.Params}

	if !validID(env.ID) {
		req.ID = nil
		return req, ErrInvalidRequest
	}

	if env.JSONRPC == nil || *env.JSONRPC != Version || env.Method == nil || *env.Method == "" {
		return req, ErrInvalidRequest
	}

	req.JSONRPC = *env.JSONRPC
	req.Method = *env.Method

	return req, nil
}

// EncodeRequest is the inverse of ParseRequest.
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// ParseResponse decodes a node reply. Any JSON object is accepted; callers
// inspect Error to tell success from failure.
func ParseResponse(body []byte) (*Response, error) {
	var res Response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// EncodeResponse marshals res, filling in the protocol version and a null id
// when absent.
func EncodeResponse(res *Response) ([]byte, error) {
	out := *res
	if out.JSONRPC == "" {
		out.JSONRPC = Version
	}
	out.ID = normalizeID(out.ID)

	return json.Marshal(&out)
}

func validID(id json.RawMessage) bool {
	if len(id) == 0 {
		return true
	}

	switch id[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}
