package signer

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/wallet/address"
	"github/chapool/go-ethsigner/internal/wallet/keystore"
	"github/chapool/go-ethsigner/internal/wallet/seed"
)

// HDConfig points at a keystore v3 file whose secret is a BIP39 mnemonic.
type HDConfig struct {
	KeystoreFile   string
	PasswordFile   string
	PassphraseFile string
	DerivationPath string
}

// NewHDSigner decrypts the mnemonic, derives the key at DerivationPath and
// wipes the mnemonic and seed.
func NewHDSigner(cfg HDConfig) (*KeySigner, error) {
	password, err := LoadPassword(cfg.PasswordFile)
	if err != nil {
		return nil, err
	}
	defer seed.Wipe(password)

	var passphrase []byte
	if cfg.PassphraseFile != "" {
		passphrase, err = readSecretFile(cfg.PassphraseFile)
		if err != nil {
			return nil, initError(err, "failed to read passphrase file")
		}
		defer seed.Wipe(passphrase)
	}

	keystoreJSON, err := keystore.LoadFile(cfg.KeystoreFile)
	if err != nil {
		return nil, initError(err, "failed to load mnemonic keystore")
	}

	mnemonic, err := keystore.Decrypt(keystoreJSON, password)
	if err != nil {
		if errors.Is(err, keystore.ErrMACMismatch) {
			return nil, initError(nil, "failed to decrypt mnemonic keystore with the given password")
		}
		return nil, initError(err, "failed to decrypt mnemonic keystore")
	}
	defer seed.Wipe(mnemonic)

	seedManager := seed.NewManager()
	if err := seedManager.Initialize(bytes.TrimSpace(mnemonic), passphrase); err != nil {
		return nil, initError(err, "failed to derive seed")
	}
	defer seedManager.Clear()

	path := cfg.DerivationPath
	if path == "" {
		path = address.DefaultDerivationPath
	}

	rootSeed := seedManager.GetSeed()
	defer seed.Wipe(rootSeed)

	privateKey, err := address.DerivePrivateKey(rootSeed, path)
	if err != nil {
		return nil, initError(err, "failed to derive private key")
	}
	defer seed.Wipe(privateKey)

	s, err := NewKeySigner(privateKey)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", s.Address().Hex()).Str("derivation_path", path).Msg("Loaded HD wallet signer")

	return s, nil
}
