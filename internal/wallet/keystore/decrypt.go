package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const derivedKeyMinLen = 32

// Decrypt returns the plaintext secret held by keystoreJSON. The caller owns
// the returned slice and is expected to zero it once done.
func Decrypt(keystoreJSON *KeystoreJSON, password []byte) ([]byte, error) {
	if keystoreJSON.Version != keystoreVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, keystoreJSON.Version)
	}

	if keystoreJSON.Crypto.Cipher != CipherAES128CTR {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, keystoreJSON.Crypto.Cipher)
	}

	//nolint:varnamelen // iv is a common abbreviation for initialization vector
	iv, err := hex.DecodeString(keystoreJSON.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode IV: %w", err)
	}

	ciphertext, err := hex.DecodeString(keystoreJSON.Crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	expectedMAC, err := hex.DecodeString(keystoreJSON.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MAC: %w", err)
	}

	derivedKey, err := deriveKey(keystoreJSON.Crypto.KDF, keystoreJSON.Crypto.KDFParams, password)
	if err != nil {
		return nil, err
	}
	defer zero(derivedKey)

	mac := calculateMAC(derivedKey[16:32], ciphertext)
	if subtle.ConstantTimeCompare(mac, expectedMAC) != 1 {
		return nil, ErrMACMismatch
	}

	plaintext, err := decryptAES128CTR(derivedKey[:16], iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return plaintext, nil
}

func deriveKey(kdf string, params KDFParamsJSON, password []byte) ([]byte, error) {
	if params.DKLen < derivedKeyMinLen {
		return nil, fmt.Errorf("derived key length %d is too short", params.DKLen)
	}

	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	switch kdf {
	case KDFScrypt:
		key, err := scrypt.Key(password, salt, params.N, params.R, params.P, params.DKLen)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		return key, nil
	case KDFPBKDF2:
		if params.PRF != prfHMACSHA256 {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedPRF, params.PRF)
		}
		return pbkdf2.Key(password, salt, params.C, params.DKLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, kdf)
	}
}

// decryptAES128CTR decrypts data using AES-128-CTR mode
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func decryptAES128CTR(key []byte, iv []byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(plaintext, ciphertext)

	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
