package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const keyFilePerm = 0o600

// LoadFile reads and parses a keystore v3 file.
func LoadFile(path string) (*KeystoreJSON, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var keystoreJSON KeystoreJSON
	if err := json.Unmarshal(raw, &keystoreJSON); err != nil {
		return nil, errors.Wrap(err, "failed to parse keystore file")
	}

	return &keystoreJSON, nil
}

// WriteFile stores keystoreJSON at path, refusing to overwrite an existing file.
func WriteFile(path string, keystoreJSON *KeystoreJSON) error {
	raw, err := json.Marshal(keystoreJSON)
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore JSON")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyFilePerm)
	if err != nil {
		return err
	}

	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "failed to write keystore file")
	}

	return f.Close()
}

// EncryptKey wraps a raw secp256k1 private key and records its address.
func EncryptKey(privateKey []byte, password []byte, params *ScryptParams) (*KeystoreJSON, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	keystoreJSON, err := EncryptScrypt(privateKey, password, params)
	if err != nil {
		return nil, err
	}

	keystoreJSON.Address = hex.EncodeToString(crypto.PubkeyToAddress(key.PublicKey).Bytes())

	return keystoreJSON, nil
}

// NewKeyFile generates a fresh private key, encrypts it and writes it to dir
// under the conventional UTC--<timestamp>--<address> name.
func NewKeyFile(dir string, password []byte, params *ScryptParams, now time.Time) (string, common.Address, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", common.Address{}, errors.Wrap(err, "failed to generate key")
	}

	privateKey := crypto.FromECDSA(key)
	defer zero(privateKey)

	keystoreJSON, err := EncryptKey(privateKey, password, params)
	if err != nil {
		return "", common.Address{}, err
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	path := filepath.Join(dir, keyFileName(address, now))

	if err := os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd
		return "", common.Address{}, err
	}

	if err := WriteFile(path, keystoreJSON); err != nil {
		return "", common.Address{}, err
	}

	return path, address, nil
}

func keyFileName(address common.Address, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15-04-05.000000000Z")
	return fmt.Sprintf("UTC--%s--%s", ts, strings.ToLower(hex.EncodeToString(address.Bytes())))
}
