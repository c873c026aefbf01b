package transaction

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Restricted is the only supported privacy restriction.
const Restricted = "restricted"

// Transaction is a legacy (pre-EIP-2718) transaction ready for signing.
// Nonce is nil until it has been resolved.
type Transaction struct {
	From     common.Address
	Nonce    *uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address
	Value    *big.Int
	Data     []byte
}

// PrivateTransaction extends Transaction with the privacy fields consumed by
// eea_sendRawTransaction. Exactly one of PrivateFor and PrivacyGroupID is set.
type PrivateTransaction struct {
	Transaction

	PrivateFrom    []byte
	PrivateFor     [][]byte
	PrivacyGroupID []byte
	Restriction    string
}

func (tx *Transaction) WithNonce(nonce uint64) *Transaction {
	out := *tx
	out.Nonce = &nonce
	return &out
}
