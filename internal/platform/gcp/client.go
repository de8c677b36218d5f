package gcp

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// newStorageClientForMode builds a read-only client. Emulator mode points the
// JSON API endpoint at the emulator and skips auth.
func newStorageClientForMode(ctx context.Context, cfg ListingConfig) (*storage.Client, error) {
	switch cfg.Storage.Mode {
	case ObjectStorageModeGCS:
		opts := credentialOptions(cfg)
		opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/")
		return storage.NewClient(ctx,
			option.WithEndpoint(endpoint+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	default:
		return nil, &ObjectStorageConfigError{
			Code:  ObjectStorageConfigErrorInvalidMode,
			Value: string(cfg.Storage.Mode),
		}
	}
}

func credentialOptions(cfg ListingConfig) []option.ClientOption {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	// Application default credentials.
	return nil
}
