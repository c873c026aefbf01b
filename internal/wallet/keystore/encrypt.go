package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// EncryptScrypt encrypts secret into keystore v3 format using scrypt.
func EncryptScrypt(secret []byte, password []byte, params *ScryptParams) (*KeystoreJSON, error) {
	salt, err := randomBytes(32) //nolint:mnd // 32 is the standard salt size
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	derivedKey, err := scrypt.Key(password, salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer zero(derivedKey)

	keystoreJSON, err := encryptWithKey(secret, derivedKey)
	if err != nil {
		return nil, err
	}

	keystoreJSON.Crypto.KDF = KDFScrypt
	keystoreJSON.Crypto.KDFParams = KDFParamsJSON{
		DKLen: params.DKLen,
		Salt:  hex.EncodeToString(salt),
		N:     params.N,
		R:     params.R,
		P:     params.P,
	}

	return keystoreJSON, nil
}

// EncryptPBKDF2 encrypts secret into keystore v3 format using pbkdf2 with hmac-sha256.
func EncryptPBKDF2(secret []byte, password []byte, params *PBKDF2Params) (*KeystoreJSON, error) {
	salt, err := randomBytes(32) //nolint:mnd // 32 is the standard salt size
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	derivedKey := pbkdf2.Key(password, salt, params.C, params.DKLen, sha256.New)
	defer zero(derivedKey)

	keystoreJSON, err := encryptWithKey(secret, derivedKey)
	if err != nil {
		return nil, err
	}

	keystoreJSON.Crypto.KDF = KDFPBKDF2
	keystoreJSON.Crypto.KDFParams = KDFParamsJSON{
		DKLen: params.DKLen,
		Salt:  hex.EncodeToString(salt),
		C:     params.C,
		PRF:   prfHMACSHA256,
	}

	return keystoreJSON, nil
}

//nolint:varnamelen // iv is a common abbreviation for initialization vector
func encryptWithKey(secret []byte, derivedKey []byte) (*KeystoreJSON, error) {
	if len(derivedKey) < derivedKeyMinLen {
		return nil, fmt.Errorf("derived key length %d is too short", len(derivedKey))
	}

	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	// first 16 bytes for AES-128, next 16 for the MAC
	ciphertext, err := encryptAES128CTR(derivedKey[:16], iv, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	keystoreJSON := &KeystoreJSON{
		Version: keystoreVersion,
		ID:      uuid.New().String(),
	}

	keystoreJSON.Crypto.Ciphertext = hex.EncodeToString(ciphertext)
	keystoreJSON.Crypto.CipherParams.IV = hex.EncodeToString(iv)
	keystoreJSON.Crypto.Cipher = CipherAES128CTR
	keystoreJSON.Crypto.MAC = hex.EncodeToString(calculateMAC(derivedKey[16:32], ciphertext))

	return keystoreJSON, nil
}

// encryptAES128CTR encrypts data using AES-128-CTR mode
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func encryptAES128CTR(key []byte, iv []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(ciphertext, plaintext)

	return ciphertext, nil
}

// calculateMAC calculates Keccak-256(derivedKey[16:32] + ciphertext)
func calculateMAC(key []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(key, ciphertext)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
