package server

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github/chapool/go-ethsigner/internal/config"
	"github/chapool/go-ethsigner/internal/wallet/signer"
)

// fileBasedSigner initializes the signer from a V3 keystore file
//
//nolint:ireturn // Returning interface is intentional
func fileBasedSigner(_ context.Context, cfg config.Server) (signer.Signer, error) {
	sc := cfg.Signer.File

	if sc.KeyFile == "" {
		return nil, errors.Errorf("--%s is required", config.FlagKeyFile)
	}

	return signer.NewFileBasedSigner(sc.KeyFile, sc.PasswordFile)
}

//nolint:ireturn // Returning interface is intentional
func hashicorpSigner(ctx context.Context, cfg config.Server) (signer.Signer, error) {
	sc := cfg.Signer.Hashicorp

	if sc.AuthFile == "" {
		return nil, errors.Errorf("--%s is required", config.FlagVaultAuthFile)
	}

	return signer.NewHashicorpSigner(ctx, signer.HashicorpConfig{
		Address:        vaultAddress(sc),
		TokenFile:      sc.AuthFile,
		SigningKeyPath: sc.SigningKeyPath,
		Timeout:        sc.Timeout,
		CACertFile:     sc.CACertFile,
	})
}

func vaultAddress(sc config.HashicorpSigner) string {
	scheme := "http"
	if sc.TLSEnabled {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, sc.Host, sc.Port)
}

// hdSigner derives the signing key from a keystore encrypted mnemonic
//
//nolint:ireturn // Returning interface is intentional
func hdSigner(_ context.Context, cfg config.Server) (signer.Signer, error) {
	sc := cfg.Signer.HD

	if sc.KeystoreFile == "" {
		return nil, errors.Errorf("--%s is required", config.FlagMnemonicKeystoreFile)
	}

	return signer.NewHDSigner(signer.HDConfig{
		KeystoreFile:   sc.KeystoreFile,
		PasswordFile:   sc.PasswordFile,
		PassphraseFile: sc.PassphraseFile,
		DerivationPath: sc.DerivationPath,
	})
}

//nolint:ireturn // Returning interface is intentional
func gcpSigner(ctx context.Context, cfg config.Server) (signer.Signer, error) {
	sc := cfg.Signer.GCP

	if sc.SecretVersion == "" {
		return nil, errors.Errorf("--%s is required", config.FlagGCPSecretVersion)
	}

	return signer.NewGCPSecretManagerSigner(ctx, signer.GCPConfig{
		SecretVersion:   sc.SecretVersion,
		CredentialsFile: sc.CredentialsFile,
		Endpoint:        sc.Endpoint,
	})
}
