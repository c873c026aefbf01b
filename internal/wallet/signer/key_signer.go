package signer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/wallet/seed"
)

var ErrSignerClosed = errors.New("signer is closed")

// KeySigner signs with an in-memory private key. The key is copied into a
// locked buffer at construction and only materialised as an ecdsa key for the
// duration of a single signature.
type KeySigner struct {
	mu      sync.RWMutex
	key     []byte
	address common.Address
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner copies privateKey. The caller keeps ownership of its slice and
// should wipe it.
func NewKeySigner(privateKey []byte) (*KeySigner, error) {
	ecdsaKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, initError(nil, "invalid secp256k1 private key")
	}
	defer ecdsaKey.D.SetUint64(0)

	key := make([]byte, len(privateKey))
	copy(key, privateKey)
	seed.Pin(key)

	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(ecdsaKey.PublicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrSignerClosed
	}

	ecdsaKey, err := crypto.ToECDSA(s.key)
	if err != nil {
		return nil, err
	}
	defer ecdsaKey.D.SetUint64(0)

	return crypto.Sign(digest, ecdsaKey)
}

func (s *KeySigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		seed.Wipe(s.key)
		seed.Unpin(s.key)
		s.key = nil
	}

	return nil
}
