package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

// PublicURL builds a browser-reachable URL for a stored object. Pure: no
// network call, no existence check.
func (l *Lister) PublicURL(remoteID string) string {
	return PublicURL(l.cfg, remoteID)
}

func PublicURL(cfg ListingConfig, remoteID string) string {
	cfg = cfg.withDefaults()
	key := strings.TrimLeft(strings.TrimSpace(remoteID), "/")
	if cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	}
	base, _ := resolvePublicBaseURL(cfg)
	if cfg.Storage.IsEmulatorMode() && base != "" {
		return fmt.Sprintf(
			"%s/storage/v1/b/%s/o/%s?alt=media",
			base,
			url.PathEscape(cfg.Bucket),
			url.PathEscape(key),
		)
	}
	if base != "" {
		return fmt.Sprintf("%s/%s/%s", base, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
}

// resolvePublicBaseURL returns the base and where it came from.
func resolvePublicBaseURL(cfg ListingConfig) (baseURL string, source string) {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/"), "object_storage_public_base_url"
	}
	if cfg.Storage.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(cfg.Storage.EmulatorHost), "/"), "storage_emulator_host"
	}
	return "", "gcs_default"
}
