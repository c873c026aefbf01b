package address_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/wallet/address"
	"github/chapool/go-ethsigner/internal/wallet/seed"
)

func TestDeriveAddress(t *testing.T) {
	m := seed.NewManager()
	require.NoError(t, m.Initialize([]byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"), nil))
	defer m.Clear()

	addr, err := address.DeriveAddress(m.GetSeed(), address.DefaultDerivationPath)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr.Hex())
}

func TestDerivePrivateKeyInvalidPath(t *testing.T) {
	_, err := address.DerivePrivateKey(make([]byte, 64), "n/44'/x")
	require.Error(t, err)
}
