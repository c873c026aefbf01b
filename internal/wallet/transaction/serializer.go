package transaction

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/wallet/signer"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNonceNotSet       = errors.New("transaction nonce is not set")
	ErrInvalidSignature  = errors.New("signer returned a malformed signature")
	ErrInvalidPrivacyArg = errors.New("exactly one of privateFor and privacyGroupId must be set")
)

// Serializer turns transactions into signed, RLP encoded raw transactions.
// Signatures are computed on a bounded pool so that CPU bound signing cannot
// starve request handling.
type Serializer struct {
	signer  signer.Signer
	chainID *big.Int
	eip155  types.EIP155Signer
	pool    *semaphore.Weighted
}

func NewSerializer(s signer.Signer, chainID int64, workers int) *Serializer {
	if workers < 1 {
		workers = 1
	}

	id := big.NewInt(chainID)

	return &Serializer{
		signer:  s,
		chainID: id,
		eip155:  types.NewEIP155Signer(id),
		pool:    semaphore.NewWeighted(int64(workers)),
	}
}

func (s *Serializer) Address() common.Address {
	return s.signer.Address()
}

// SignTransaction returns rlp(nonce, gasPrice, gas, to, value, data, v, r, s)
// with v = recId + 35 + 2*chainId.
func (s *Serializer) SignTransaction(ctx context.Context, tx *Transaction) ([]byte, common.Hash, error) {
	if tx.Nonce == nil {
		return nil, common.Hash{}, ErrNonceNotSet
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    *tx.Nonce,
		GasPrice: orZero(tx.GasPrice),
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    orZero(tx.Value),
		Data:     tx.Data,
	})

	sig, err := s.sign(ctx, s.eip155.Hash(unsigned).Bytes())
	if err != nil {
		return nil, common.Hash{}, err
	}

	signed, err := unsigned.WithSignature(s.eip155, sig)
	if err != nil {
		return nil, common.Hash{}, errors.Wrap(err, "failed to apply signature")
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, common.Hash{}, errors.Wrap(err, "failed to encode transaction")
	}

	return raw, signed.Hash(), nil
}

// SignPrivateTransaction signs a privacy transaction. The privacy fields are
// appended after the EIP-155 fields both in the signing payload and in the
// signed encoding.
func (s *Serializer) SignPrivateTransaction(ctx context.Context, tx *PrivateTransaction) ([]byte, error) {
	if tx.Nonce == nil {
		return nil, ErrNonceNotSet
	}

	if (len(tx.PrivateFor) == 0) == (len(tx.PrivacyGroupID) == 0) {
		return nil, ErrInvalidPrivacyArg
	}

	var recipients interface{} = tx.PrivacyGroupID
	if len(tx.PrivateFor) > 0 {
		recipients = tx.PrivateFor
	}

	fields := []interface{}{
		*tx.Nonce,
		orZero(tx.GasPrice),
		tx.Gas,
		toBytes(tx.To),
		orZero(tx.Value),
		emptyIfNil(tx.Data),
	}
	privacy := []interface{}{
		tx.PrivateFrom,
		recipients,
		[]byte(tx.Restriction),
	}

	payload := make([]interface{}, 0, len(fields)+3+len(privacy)) //nolint:mnd
	payload = append(payload, fields...)
	payload = append(payload, s.chainID, uint(0), uint(0))
	payload = append(payload, privacy...)

	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode signing payload")
	}

	sig, err := s.sign(ctx, crypto.Keccak256(encoded))
	if err != nil {
		return nil, err
	}

	// v = recId + 35 + 2*chainId
	v := new(big.Int).Mul(s.chainID, big.NewInt(2)) //nolint:mnd
	v.Add(v, big.NewInt(int64(sig[64])+35))         //nolint:mnd

	signed := make([]interface{}, 0, len(payload))
	signed = append(signed, fields...)
	signed = append(signed, v, new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:64]))
	signed = append(signed, privacy...)

	raw, err := rlp.EncodeToBytes(signed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode private transaction")
	}

	return raw, nil
}

func (s *Serializer) sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.pool.Release(1)

	sig, err := s.signer.Sign(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if len(sig) != signer.SignatureLength || sig[64] > 1 {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func toBytes(to *common.Address) []byte {
	if to == nil {
		return []byte{}
	}
	return to.Bytes()
}

func emptyIfNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
