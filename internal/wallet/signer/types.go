package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SignatureLength is the size of a [R || S || V] signature where V is the
// recovery id (0 or 1).
const SignatureLength = 65

// Signer holds exactly one Ethereum key. Implementations are safe for
// concurrent use and immutable after construction.
type Signer interface {
	// Address returns the account the key belongs to
	Address() common.Address

	// Sign signs a 32-byte digest, returning [R || S || V] with V in {0, 1}
	Sign(ctx context.Context, digest []byte) ([]byte, error)

	// Close zeroes the key material
	Close() error
}

// InitializationError is returned when a signer cannot be constructed from
// its configuration. Reason never contains secret material.
type InitializationError struct {
	Reason string
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to initialize signer: %s", e.Reason)
	}

	return fmt.Sprintf("failed to initialize signer: %s: %v", e.Reason, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

func initError(err error, reason string) error {
	return &InitializationError{Reason: reason, Err: err}
}
