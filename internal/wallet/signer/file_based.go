package signer

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/wallet/keystore"
	"github/chapool/go-ethsigner/internal/wallet/seed"
)

// NewFileBasedSigner decrypts a keystore v3 file. An empty passwordFile
// prompts on the terminal. The password is wiped before returning.
func NewFileBasedSigner(keyFile string, passwordFile string) (*KeySigner, error) {
	password, err := LoadPassword(passwordFile)
	if err != nil {
		return nil, err
	}
	defer seed.Wipe(password)

	keystoreJSON, err := keystore.LoadFile(keyFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, initError(nil, "key file "+keyFile+" not found")
		}
		return nil, initError(err, "failed to load key file")
	}

	privateKey, err := keystore.Decrypt(keystoreJSON, password)
	if err != nil {
		switch {
		case errors.Is(err, keystore.ErrMACMismatch):
			return nil, initError(nil, "failed to decrypt key file with the given password")
		case errors.Is(err, keystore.ErrUnsupportedCipher),
			errors.Is(err, keystore.ErrUnsupportedKDF),
			errors.Is(err, keystore.ErrUnsupportedPRF),
			errors.Is(err, keystore.ErrUnsupportedFormat):
			return nil, initError(err, "unsupported key file")
		default:
			return nil, initError(err, "failed to decrypt key file")
		}
	}
	defer seed.Wipe(privateKey)

	s, err := NewKeySigner(privateKey)
	if err != nil {
		return nil, err
	}

	if keystoreJSON.Address != "" {
		recorded := common.HexToAddress(keystoreJSON.Address)
		if recorded != s.Address() {
			_ = s.Close()
			return nil, initError(nil, "key file address "+recorded.Hex()+" does not match decrypted key")
		}
	}

	log.Info().Str("address", s.Address().Hex()).Str("key_file", keyFile).Msg("Loaded file based signer")

	return s, nil
}
