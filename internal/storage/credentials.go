package storage

import (
	"context"
	"fmt"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
)

// KeyPair is a resolved object-storage access key pair.
type KeyPair struct {
	AccessKeyID     string
	SecretAccessKey string
}

// CredentialProvider resolves an access key pair. The single-capability
// interface keeps credential sourcing swappable in tests without mutating the
// process environment.
type CredentialProvider interface {
	Resolve(ctx context.Context) (KeyPair, error)
}

// StaticCredentials is a CredentialProvider over a fixed key pair.
type StaticCredentials struct {
	keys KeyPair
}

// NewStaticCredentials creates a provider over the given key pair.
func NewStaticCredentials(accessKeyID, secretAccessKey string) *StaticCredentials {
	return &StaticCredentials{keys: KeyPair{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
	}}
}

// CredentialsFromConfig builds a static provider from the storage
// configuration, which carries the environment-sourced key pair.
func CredentialsFromConfig(cfg config.StorageConfig) *StaticCredentials {
	return NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey)
}

// Resolve implements the CredentialProvider interface. Missing keys resolve
// to an auth-classified error so the run fails before any network call.
func (s *StaticCredentials) Resolve(ctx context.Context) (KeyPair, error) {
	if s.keys.AccessKeyID == "" || s.keys.SecretAccessKey == "" {
		return KeyPair{}, pkgerrors.New(
			fmt.Errorf("missing access key pair"),
			pkgerrors.ErrorTypeAuth, "uploader", "resolve_credentials")
	}
	return s.keys, nil
}
