package gcp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

// ObjectStorageConfig selects real GCS or a fake-gcs-server emulator.
// CompatibilityFallback records that emulator mode was inferred from
// STORAGE_EMULATOR_HOST alone.
type ObjectStorageConfig struct {
	Mode                  ObjectStorageMode
	EmulatorHost          string
	CompatibilityFallback bool
}

func IsSupportedObjectStorageMode(mode ObjectStorageMode) bool {
	return mode == ObjectStorageModeGCS || mode == ObjectStorageModeGCSEmulator
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

func (cfg ObjectStorageConfig) ModeSource() string {
	if cfg.CompatibilityFallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ObjectStorageConfigErrorCode string

const (
	ObjectStorageConfigErrorInvalidMode         ObjectStorageConfigErrorCode = "invalid_mode"
	ObjectStorageConfigErrorMissingEmulatorHost ObjectStorageConfigErrorCode = "missing_emulator_host"
	ObjectStorageConfigErrorInvalidEmulatorHost ObjectStorageConfigErrorCode = "invalid_emulator_host"
	ObjectStorageConfigErrorMissingBucket       ObjectStorageConfigErrorCode = "missing_bucket"
	ObjectStorageConfigErrorInvalidPublicBase   ObjectStorageConfigErrorCode = "invalid_public_base_url"
)

var objectStorageErrorFormats = map[ObjectStorageConfigErrorCode]string{
	ObjectStorageConfigErrorInvalidMode:         "invalid OBJECT_STORAGE_MODE=%q (allowed: gcs, gcs_emulator)",
	ObjectStorageConfigErrorMissingEmulatorHost: "OBJECT_STORAGE_MODE=gcs_emulator requires STORAGE_EMULATOR_HOST",
	ObjectStorageConfigErrorInvalidEmulatorHost: "invalid STORAGE_EMULATOR_HOST=%q; expected an absolute URL like http://fake-gcs:4443",
	ObjectStorageConfigErrorMissingBucket:       "missing CATALOG_BUCKET",
	ObjectStorageConfigErrorInvalidPublicBase:   "invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected an absolute URL",
}

type ObjectStorageConfigError struct {
	Code  ObjectStorageConfigErrorCode
	Value string
	Cause error
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	format, ok := objectStorageErrorFormats[e.Code]
	if !ok {
		return "invalid object storage config"
	}
	if !strings.Contains(format, "%") {
		return format
	}
	return fmt.Sprintf(format, e.Value)
}

func (e *ObjectStorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveObjectStorageConfig picks the storage mode. A blank mode with an
// emulator host set falls back to emulator mode.
func ResolveObjectStorageConfig(rawMode, emulatorHost string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		Mode:         ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode))),
		EmulatorHost: strings.TrimSpace(emulatorHost),
	}
	if cfg.Mode == "" {
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.CompatibilityFallback = true
		}
	}
	if !IsSupportedObjectStorageMode(cfg.Mode) {
		return cfg, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: strings.TrimSpace(rawMode)}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch {
	case !IsSupportedObjectStorageMode(cfg.Mode):
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	case !cfg.IsEmulatorMode():
		return nil
	case cfg.EmulatorHost == "":
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingEmulatorHost}
	case !isAbsoluteURL(cfg.EmulatorHost):
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidEmulatorHost, Value: cfg.EmulatorHost}
	}
	return nil
}

// ListingConfig is everything the listing client needs. It is built once by
// the caller; the client never reads the environment.
type ListingConfig struct {
	Storage ObjectStorageConfig
	Bucket  string
	// RootFolder is the prefix under which every virtual folder lives ("" for bucket root).
	RootFolder  string
	PageSize    int
	CallTimeout time.Duration

	PublicBaseURL   string
	CDNDomain       string
	CredentialsJSON string
	CredentialsFile string
}

const (
	DefaultPageSize    = 100
	MaxPageSize        = 1000
	DefaultCallTimeout = 30 * time.Second
)

func (c ListingConfig) withDefaults() ListingConfig {
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.RootFolder = strings.Trim(strings.TrimSpace(c.RootFolder), "/")
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	c.CDNDomain = strings.Trim(strings.TrimSpace(c.CDNDomain), "/")
	return c
}

func (c ListingConfig) validate() error {
	if c.Bucket == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingBucket}
	}
	if c.PublicBaseURL != "" && !isAbsoluteURL(c.PublicBaseURL) {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidPublicBase, Value: c.PublicBaseURL}
	}
	return ValidateObjectStorageConfig(c.Storage)
}

// FolderPrefix is the object-name prefix of a virtual folder, always ending in "/".
func (c ListingConfig) FolderPrefix(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	switch {
	case c.RootFolder == "" && folder == "":
		return ""
	case c.RootFolder == "":
		return folder + "/"
	case folder == "":
		return c.RootFolder + "/"
	default:
		return c.RootFolder + "/" + folder + "/"
	}
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && strings.TrimSpace(u.Scheme) != "" && strings.TrimSpace(u.Host) != ""
}
