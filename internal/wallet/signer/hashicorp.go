package signer

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	vault "github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/wallet/seed"
)

const vaultKeyField = "value"

var errVaultPath = errors.New("signing key path must look like /v1/<mount>/data/<secret>")

// HashicorpConfig locates a private key stored in a Vault KV v2 secret under
// the "value" field.
type HashicorpConfig struct {
	// Address is scheme://host:port of the vault server
	Address        string
	TokenFile      string
	SigningKeyPath string
	Timeout        time.Duration

	// CACertFile optionally pins the CA used to verify the vault server
	CACertFile string
}

// NewHashicorpSigner fetches the key from vault once and keeps it in memory.
func NewHashicorpSigner(ctx context.Context, cfg HashicorpConfig) (*KeySigner, error) {
	mount, secretPath, err := splitKVv2Path(cfg.SigningKeyPath)
	if err != nil {
		return nil, initError(err, "invalid vault signing key path")
	}

	token, err := readSecretFile(cfg.TokenFile)
	if err != nil {
		return nil, initError(err, "failed to read vault token file")
	}
	defer seed.Wipe(token)

	client, err := newVaultClient(cfg)
	if err != nil {
		return nil, initError(err, "failed to create vault client")
	}
	client.SetToken(string(token))
	defer client.ClearToken()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	secret, err := client.KVv2(mount).Get(ctx, secretPath)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, initError(nil, "no secret found at "+cfg.SigningKeyPath)
		}
		return nil, initError(err, "failed to read signing key from vault")
	}

	value, _ := secret.Data[vaultKeyField].(string)
	privateKey, err := decodeHexKey(value)
	delete(secret.Data, vaultKeyField)
	if err != nil {
		return nil, err
	}
	defer seed.Wipe(privateKey)

	s, err := NewKeySigner(privateKey)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", s.Address().Hex()).Str("vault_path", cfg.SigningKeyPath).Msg("Loaded hashicorp vault signer")

	return s, nil
}

func newVaultClient(cfg HashicorpConfig) (*vault.Client, error) {
	vc := vault.DefaultConfig()
	if vc.Error != nil {
		return nil, vc.Error
	}

	vc.Address = cfg.Address
	vc.Timeout = cfg.Timeout
	vc.MaxRetries = 0

	if cfg.CACertFile != "" {
		if err := vc.ConfigureTLS(&vault.TLSConfig{CACert: cfg.CACertFile}); err != nil {
			return nil, err
		}
	}

	return vault.NewClient(vc)
}

// splitKVv2Path turns an HTTP API path such as /v1/secret/data/signingKey into
// the KV v2 mount ("secret") and the secret path ("signingKey").
func splitKVv2Path(p string) (string, string, error) {
	p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), "v1/")

	mount, secretPath, ok := strings.Cut(p, "/data/")
	if !ok || mount == "" || strings.Trim(secretPath, "/") == "" {
		return "", "", errVaultPath
	}

	return mount, strings.Trim(secretPath, "/"), nil
}

func decodeHexKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, initError(nil, "secret does not contain a private key")
	}

	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		value = "0x" + value
	}

	key, err := hexutil.Decode(value)
	if err != nil {
		return nil, initError(nil, "secret is not a hex encoded private key")
	}

	return key, nil
}
