package sendtransaction

import (
	"strings"

	"github/chapool/go-ethsigner/internal/jsonrpc"
)

type nodeRejection int

const (
	rejectionOther nodeRejection = iota
	rejectionNonceTooLow
	rejectionInsufficientFunds
	rejectionKnownTransaction
)

// Node error codes for rejected submissions.
const (
	nodeCodeNonceTooLow         = -32001
	nodeCodeUpfrontCostExceeded = -32003
	nodeCodeInsufficientFunds   = -32004
)

func classify(e *jsonrpc.Error) nodeRejection {
	msg := strings.ToLower(e.Message)

	switch {
	case e.Code == nodeCodeNonceTooLow || strings.Contains(msg, "nonce too low"):
		return rejectionNonceTooLow
	case e.Code == nodeCodeUpfrontCostExceeded,
		e.Code == nodeCodeInsufficientFunds,
		strings.Contains(msg, "upfront cost"),
		strings.Contains(msg, "insufficient funds"):
		return rejectionInsufficientFunds
	case strings.Contains(msg, "known transaction"),
		strings.Contains(msg, "already known"),
		strings.Contains(msg, "already imported"):
		return rejectionKnownTransaction
	default:
		return rejectionOther
	}
}

func (r nodeRejection) String() string {
	switch r {
	case rejectionNonceTooLow:
		return "nonce_too_low"
	case rejectionInsufficientFunds:
		return "insufficient_funds"
	case rejectionKnownTransaction:
		return "known_transaction"
	default:
		return "rejected"
	}
}
