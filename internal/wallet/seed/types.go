package seed

// Manager holds a BIP39 seed in locked, zeroable memory.
type Manager interface {
	// Initialize derives the seed from mnemonic and the optional passphrase
	Initialize(mnemonic []byte, passphrase []byte) error

	// GetSeed gets the seed (returns a copy the caller must Wipe)
	GetSeed() []byte

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear clears the seed from memory
	Clear()
}
