package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Error is the JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// Is matches errors by code so that a forwarded node error with custom
// data still compares equal to its template.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Error codes emitted by the proxy. The numeric values are part of the wire
// contract with existing clients and must not change.
const (
	CodeParseError                         = -32700
	CodeInvalidRequest                     = -32600
	CodeMethodNotFound                     = -32601
	CodeInvalidParams                      = -32602
	CodeInternalError                      = -32603
	CodeNonceTooLow                        = -32000
	CodeSigningFromIsNotAnUnlockedAccount  = -32001
	CodeTransactionUpfrontCostExceedsFunds = -32002
	CodeConnectionToDownstreamTimedOut     = -32010
)

//nolint:gochecknoglobals
var (
	ErrParseError                           = Error{Code: CodeParseError, Message: "Parse error"}
	ErrInvalidRequest                       = Error{Code: CodeInvalidRequest, Message: "Invalid Request"}
	ErrMethodNotFound                       = Error{Code: CodeMethodNotFound, Message: "Method not found"}
	ErrInvalidParams                        = Error{Code: CodeInvalidParams, Message: "Invalid params"}
	ErrInternalError                        = Error{Code: CodeInternalError, Message: "Internal error"}
	ErrNonceTooLow                          = Error{Code: CodeNonceTooLow, Message: "Nonce too low"}
	ErrSigningFromIsNotAnUnlockedAccount    = Error{Code: CodeSigningFromIsNotAnUnlockedAccount, Message: "From address is not an unlocked account"}
	ErrTransactionUpfrontCostExceedsBalance = Error{Code: CodeTransactionUpfrontCostExceedsFunds, Message: "Upfront cost exceeds account balance"}
	ErrConnectionToDownstreamNodeTimedOut   = Error{Code: CodeConnectionToDownstreamTimedOut, Message: "Connection to downstream node timed out"}
)
