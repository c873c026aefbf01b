package sendtransaction

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/wallet/transaction"
)

// Values applied when the client leaves a field out.
const (
	DefaultGas uint64 = 0x15f90
)

const enclaveKeyLength = 32

var (
	errParamsShape         = errors.New("params must be an array holding exactly one transaction object")
	errFromMissing         = errors.New("from is required")
	errDataAndInput        = errors.New("data and input differ")
	errPrivateFromMissing  = errors.New("privateFrom is required")
	errPrivacyTarget       = errors.New("exactly one of privateFor and privacyGroupId is required")
	errRestriction         = errors.New("restriction must be \"restricted\"")
	errPrivacyKeyMalformed = errors.New("enclave keys must be base64 encoded 32 byte values")
)

type txArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    *hexutil.Uint64 `json:"nonce"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

type privateTxArgs struct {
	txArgs

	PrivateFrom    *string  `json:"privateFrom"`
	PrivateFor     []string `json:"privateFor"`
	PrivacyGroupID *string  `json:"privacyGroupId"`
	Restriction    *string  `json:"restriction"`
}

// Params is a validated eth_sendTransaction or eea_sendTransaction argument.
type Params struct {
	Tx transaction.Transaction

	// Set for eea_sendTransaction only.
	Private *transaction.PrivateTransaction

	// Base64 forms as received, used for the privacy nonce queries.
	PrivateFrom    string
	PrivateFor     []string
	PrivacyGroupID string
}

// NonceSupplied reports whether the client fixed the nonce itself.
func (p *Params) NonceSupplied() bool {
	return p.Tx.Nonce != nil
}

func parsePublicParams(raw json.RawMessage) (*Params, error) {
	elem, err := singleElement(raw)
	if err != nil {
		return nil, err
	}

	var args txArgs
	if err := strictDecode(elem, &args); err != nil {
		return nil, err
	}

	tx, err := args.toTransaction()
	if err != nil {
		return nil, err
	}

	return &Params{Tx: *tx}, nil
}

func parsePrivateParams(raw json.RawMessage) (*Params, error) {
	elem, err := singleElement(raw)
	if err != nil {
		return nil, err
	}

	var args privateTxArgs
	if err := strictDecode(elem, &args); err != nil {
		return nil, err
	}

	tx, err := args.toTransaction()
	if err != nil {
		return nil, err
	}

	if args.PrivateFrom == nil {
		return nil, errPrivateFromMissing
	}

	if args.Restriction == nil || *args.Restriction != transaction.Restricted {
		return nil, errRestriction
	}

	hasFor := args.PrivateFor != nil
	hasGroup := args.PrivacyGroupID != nil
	if hasFor == hasGroup {
		return nil, errPrivacyTarget
	}

	privateFrom, err := decodeEnclaveKey(*args.PrivateFrom)
	if err != nil {
		return nil, err
	}

	p := &Params{
		Tx:          *tx,
		PrivateFrom: *args.PrivateFrom,
		Private: &transaction.PrivateTransaction{
			PrivateFrom: privateFrom,
			Restriction: *args.Restriction,
		},
	}

	if hasGroup {
		group, err := decodeEnclaveKey(*args.PrivacyGroupID)
		if err != nil {
			return nil, err
		}
		p.Private.PrivacyGroupID = group
		p.PrivacyGroupID = *args.PrivacyGroupID
	} else {
		if len(args.PrivateFor) == 0 {
			return nil, errPrivacyTarget
		}

		for _, recipient := range args.PrivateFor {
			key, err := decodeEnclaveKey(recipient)
			if err != nil {
				return nil, err
			}
			p.Private.PrivateFor = append(p.Private.PrivateFor, key)
		}
		p.PrivateFor = args.PrivateFor
	}

	return p, nil
}

func (a *txArgs) toTransaction() (*transaction.Transaction, error) {
	if a.From == nil {
		return nil, errFromMissing
	}

	tx := &transaction.Transaction{
		From:     *a.From,
		To:       a.To,
		Gas:      DefaultGas,
		GasPrice: new(big.Int),
		Value:    new(big.Int),
	}

	if a.Gas != nil {
		tx.Gas = uint64(*a.Gas)
	}
	if a.GasPrice != nil {
		tx.GasPrice = a.GasPrice.ToInt()
	}
	if a.Value != nil {
		tx.Value = a.Value.ToInt()
	}
	if a.Nonce != nil {
		n := uint64(*a.Nonce)
		tx.Nonce = &n
	}

	switch {
	case a.Data != nil && a.Input != nil && !bytes.Equal(*a.Data, *a.Input):
		return nil, errDataAndInput
	case a.Data != nil:
		tx.Data = *a.Data
	case a.Input != nil:
		tx.Data = *a.Input
	}

	return tx, nil
}

func singleElement(raw json.RawMessage) (json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, errors.Wrap(errParamsShape, err.Error())
	}

	if len(elems) != 1 {
		return nil, errParamsShape
	}

	trimmed := bytes.TrimSpace(elems[0])
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errParamsShape
	}

	return trimmed, nil
}

func strictDecode(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode transaction object")
	}

	return nil
}

func decodeEnclaveKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != enclaveKeyLength {
		return nil, errPrivacyKeyMalformed
	}

	return key, nil
}
