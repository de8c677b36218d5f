package gcp

import (
	"errors"
	"testing"
)

func TestResolveObjectStorageConfig(t *testing.T) {
	cases := []struct {
		name         string
		mode         string
		emulatorHost string
		wantMode     ObjectStorageMode
		wantFallback bool
		wantCode     ObjectStorageConfigErrorCode
	}{
		{name: "default gcs", wantMode: ObjectStorageModeGCS},
		{name: "explicit gcs ignores emulator", mode: "gcs", emulatorHost: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCS},
		{name: "explicit emulator", mode: "GCS_EMULATOR", emulatorHost: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCSEmulator},
		{name: "compat fallback", emulatorHost: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCSEmulator, wantFallback: true},
		{name: "invalid mode", mode: "local", wantCode: ObjectStorageConfigErrorInvalidMode},
		{name: "emulator missing host", mode: "gcs_emulator", wantCode: ObjectStorageConfigErrorMissingEmulatorHost},
		{name: "emulator bad host", mode: "gcs_emulator", emulatorHost: "fake-gcs:4443", wantCode: ObjectStorageConfigErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ResolveObjectStorageConfig(tc.mode, tc.emulatorHost)
			if tc.wantCode != "" {
				var cfgErr *ObjectStorageConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ObjectStorageConfigError, got=%T (%v)", err, err)
				}
				if cfgErr.Code != tc.wantCode {
					t.Fatalf("code: want=%q got=%q", tc.wantCode, cfgErr.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveObjectStorageConfig: %v", err)
			}
			if cfg.Mode != tc.wantMode {
				t.Fatalf("mode: want=%q got=%q", tc.wantMode, cfg.Mode)
			}
			if cfg.CompatibilityFallback != tc.wantFallback {
				t.Fatalf("compatibility fallback: want=%v got=%v", tc.wantFallback, cfg.CompatibilityFallback)
			}
		})
	}
}

func TestListingConfigDefaultsAndPrefix(t *testing.T) {
	cfg := ListingConfig{Bucket: " ratings ", RootFolder: "/ai-rating-images/", PageSize: 5000}.withDefaults()
	if cfg.Bucket != "ratings" {
		t.Fatalf("bucket: want=%q got=%q", "ratings", cfg.Bucket)
	}
	if cfg.PageSize != MaxPageSize {
		t.Fatalf("page size: want=%d got=%d", MaxPageSize, cfg.PageSize)
	}
	if cfg.CallTimeout != DefaultCallTimeout {
		t.Fatalf("timeout: want=%v got=%v", DefaultCallTimeout, cfg.CallTimeout)
	}
	if got := cfg.FolderPrefix("dalle3"); got != "ai-rating-images/dalle3/" {
		t.Fatalf("FolderPrefix: want=%q got=%q", "ai-rating-images/dalle3/", got)
	}
	if got := cfg.FolderPrefix(""); got != "ai-rating-images/" {
		t.Fatalf("FolderPrefix(root): want=%q got=%q", "ai-rating-images/", got)
	}

	bare := ListingConfig{Bucket: "b"}.withDefaults()
	if got := bare.FolderPrefix("/sd15/"); got != "sd15/" {
		t.Fatalf("FolderPrefix(no root): want=%q got=%q", "sd15/", got)
	}
	if got := bare.FolderPrefix(""); got != "" {
		t.Fatalf("FolderPrefix(empty): want empty got=%q", got)
	}
}

func TestListingConfigValidate(t *testing.T) {
	err := ListingConfig{Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCS}}.withDefaults().validate()
	var cfgErr *ObjectStorageConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ObjectStorageConfigErrorMissingBucket {
		t.Fatalf("missing bucket: got=%v", err)
	}

	err = ListingConfig{
		Bucket:        "b",
		PublicBaseURL: "localhost:4443",
		Storage:       ObjectStorageConfig{Mode: ObjectStorageModeGCS},
	}.withDefaults().validate()
	if !errors.As(err, &cfgErr) || cfgErr.Code != ObjectStorageConfigErrorInvalidPublicBase {
		t.Fatalf("bad public base: got=%v", err)
	}

	ok := ListingConfig{Bucket: "b", Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCS}}.withDefaults()
	if err := ok.validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}
