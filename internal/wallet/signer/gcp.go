package signer

import (
	"context"
	"encoding/base64"

	"github.com/rs/zerolog/log"
	"github/chapool/go-ethsigner/internal/wallet/seed"
	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// GCPConfig names a Secret Manager secret version holding a hex encoded key,
// e.g. projects/p/secrets/s/versions/latest.
type GCPConfig struct {
	SecretVersion   string
	CredentialsFile string
	Endpoint        string
}

func NewGCPSecretManagerSigner(ctx context.Context, cfg GCPConfig, opts ...option.ClientOption) (*KeySigner, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, initError(err, "failed to create secret manager client")
	}

	res, err := svc.Projects.Secrets.Versions.Access(cfg.SecretVersion).Context(ctx).Do()
	if err != nil {
		return nil, initError(err, "failed to access secret version")
	}

	if res.Payload == nil {
		return nil, initError(nil, "secret version has no payload")
	}

	payload, err := base64.StdEncoding.DecodeString(res.Payload.Data)
	res.Payload.Data = ""
	if err != nil {
		return nil, initError(nil, "secret payload is not base64")
	}
	defer seed.Wipe(payload)

	privateKey, err := decodeHexKey(string(payload))
	if err != nil {
		return nil, err
	}
	defer seed.Wipe(privateKey)

	s, err := NewKeySigner(privateKey)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", s.Address().Hex()).Str("secret", res.Name).Msg("Loaded GCP secret manager signer")

	return s, nil
}
