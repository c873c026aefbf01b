package keystore

import (
	"errors"
)

const (
	keystoreVersion = 3

	CipherAES128CTR = "aes-128-ctr"
	KDFScrypt       = "scrypt"
	KDFPBKDF2       = "pbkdf2"

	prfHMACSHA256 = "hmac-sha256"
)

var (
	ErrMACMismatch       = errors.New("invalid password: MAC mismatch")
	ErrUnsupportedCipher = errors.New("unsupported cipher")
	ErrUnsupportedKDF    = errors.New("unsupported key derivation function")
	ErrUnsupportedPRF    = errors.New("unsupported pbkdf2 pseudo random function")
	ErrUnsupportedFormat = errors.New("unsupported keystore version")
)

// KeystoreJSON represents the Ethereum keystore v3 JSON structure
//
//nolint:revive // KeystoreJSON is the standard name for Ethereum keystore JSON structure
type KeystoreJSON struct {
	Address string     `json:"address,omitempty"`
	Crypto  CryptoJSON `json:"crypto"`
	ID      string     `json:"id"`
	Version int        `json:"version"`
}

type CryptoJSON struct {
	Cipher       string `json:"cipher"`
	Ciphertext   string `json:"ciphertext"`
	CipherParams struct {
		IV string `json:"iv"`
	} `json:"cipherparams"`
	KDF       string        `json:"kdf"`
	KDFParams KDFParamsJSON `json:"kdfparams"`
	MAC       string        `json:"mac"`
}

// KDFParamsJSON is the union of the scrypt and pbkdf2 parameter sets.
type KDFParamsJSON struct {
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`

	// scrypt
	N int `json:"n,omitempty"`
	R int `json:"r,omitempty"`
	P int `json:"p,omitempty"`

	// pbkdf2
	C   int    `json:"c,omitempty"`
	PRF string `json:"prf,omitempty"`
}

// ScryptParams defines scrypt KDF parameters
type ScryptParams struct {
	DKLen int // Derived key length (32 bytes)
	N     int // CPU/memory cost parameter (262144)
	R     int // Block size parameter (8)
	P     int // Parallelization parameter (1)
}

// DefaultScryptParams returns default scrypt parameters for Ethereum keystore v3
func DefaultScryptParams() *ScryptParams {
	const (
		scryptDKLen = 32     // Derived key length (32 bytes)
		scryptN     = 262144 // CPU/memory cost parameter (2^18)
		scryptR     = 8      // Block size parameter
		scryptP     = 1      // Parallelization parameter
	)

	return &ScryptParams{
		DKLen: scryptDKLen,
		N:     scryptN,
		R:     scryptR,
		P:     scryptP,
	}
}

// LightScryptParams trade security for speed. Only meant for tests and
// throwaway development keys.
func LightScryptParams() *ScryptParams {
	const (
		scryptDKLen = 32
		scryptN     = 4096
		scryptR     = 8
		scryptP     = 6
	)

	return &ScryptParams{
		DKLen: scryptDKLen,
		N:     scryptN,
		R:     scryptR,
		P:     scryptP,
	}
}

// PBKDF2Params defines pbkdf2 KDF parameters. Only hmac-sha256 is supported.
type PBKDF2Params struct {
	DKLen int
	C     int
}

func DefaultPBKDF2Params() *PBKDF2Params {
	const (
		pbkdf2DKLen = 32
		pbkdf2C     = 262144
	)

	return &PBKDF2Params{DKLen: pbkdf2DKLen, C: pbkdf2C}
}
