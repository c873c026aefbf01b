package test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ethsigner/internal/api"
	"github/chapool/go-ethsigner/internal/api/router"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/wallet/signer"
)

// Test account, funded in Besu's dev genesis.
const (
	TestPrivateKeyHex = "0x8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"
	TestChainID       = 2018
)

func SignerAddress(t *testing.T) common.Address {
	t.Helper()

	key, err := crypto.ToECDSA(hexutil.MustDecode(TestPrivateKeyHex))
	require.NoError(t, err)

	return crypto.PubkeyToAddress(key.PublicKey)
}

func DefaultTestConfig() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.ChainID = TestChainID
	cfg.Downstream.Timeout = 2 * time.Second
	cfg.DataPath = ""
	cfg.Metrics.Enabled = false
	cfg.SigningWorkers = 2

	return cfg
}

// WithTestServer runs closure against a fully wired server whose downstream
// node is a StubNode.
func WithTestServer(t *testing.T, closure func(s *api.Server, node *StubNode)) {
	t.Helper()

	WithTestServerConfigurable(t, DefaultTestConfig(), closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server, node *StubNode)) {
	t.Helper()

	node := NewStubNode(t)
	cfg.Downstream.URL = node.URL()

	closure(NewTestServer(t, cfg), node)
}

func NewTestSigner(t *testing.T) signer.Signer {
	t.Helper()

	sgn, err := signer.NewKeySigner(hexutil.MustDecode(TestPrivateKeyHex))
	require.NoError(t, err)

	return sgn
}

func NewTestServer(t *testing.T, cfg config.Server) *api.Server {
	t.Helper()

	s, err := api.InitNewServer(t.Context(), cfg, NewTestSigner(t))
	require.NoError(t, err)

	router.Init(s)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			t.Logf("Failed to shutdown test server: %v", err)
		}
	})

	return s
}
