package signer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/wallet/seed"
	"golang.org/x/term"
)

// readSecretFile returns the first line of path.
func readSecretFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	line := raw
	if i := bytes.IndexAny(raw, "\r\n"); i >= 0 {
		line = raw[:i]
	}

	secret := make([]byte, len(line))
	copy(secret, line)
	seed.Wipe(raw)

	return secret, nil
}

// promptPassword reads a password from the controlling terminal without echo.
func promptPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return nil, errors.New("no password file given and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read password")
	}

	return password, nil
}

// LoadPassword reads path, falling back to an interactive prompt when path is empty.
func LoadPassword(path string) ([]byte, error) {
	if path == "" {
		password, err := promptPassword("Enter keystore password: ")
		if err != nil {
			return nil, initError(err, "failed to read password")
		}
		return password, nil
	}

	password, err := readSecretFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, initError(nil, fmt.Sprintf("password file %q not found", path))
		}
		return nil, initError(err, "failed to read password file")
	}

	return password, nil
}
