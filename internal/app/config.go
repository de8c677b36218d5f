package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/imagerate-backend/internal/clients/redis"
	"github.com/yungbote/imagerate-backend/internal/data/db"
	"github.com/yungbote/imagerate-backend/internal/observability"
	"github.com/yungbote/imagerate-backend/internal/platform/envutil"
	"github.com/yungbote/imagerate-backend/internal/platform/gcp"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type Config struct {
	LogMode string
	Port    string

	DB      db.Config
	Listing gcp.ListingConfig
	Sync    services.SyncConfig

	SyncOnStart bool
	Lock        redis.LockConfig

	// BackfillMappingDir is where HTTP backfill requests may read mapping files.
	BackfillMappingDir string

	CORSOrigins    []string
	MetricsEnabled bool
	Otel           observability.OtelConfig
}

// LoadDotEnv seeds the process environment from path when it exists.
// Variables already set win over the file.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	storage, err := gcp.ResolveObjectStorageConfig(
		envutil.String("OBJECT_STORAGE_MODE", ""),
		envutil.String("STORAGE_EMULATOR_HOST", ""),
	)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverSQLite),
			SQLitePath:       envutil.String("SQLITE_PATH", "imagerate.db"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "imagerate"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		Listing: gcp.ListingConfig{
			Storage:         storage,
			Bucket:          envutil.String("CATALOG_BUCKET", ""),
			RootFolder:      envutil.String("CATALOG_ROOT_FOLDER", ""),
			PageSize:        envutil.Int("LIST_PAGE_SIZE", gcp.DefaultPageSize),
			CallTimeout:     envutil.Duration("LIST_CALL_TIMEOUT", gcp.DefaultCallTimeout),
			PublicBaseURL:   envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""),
			CDNDomain:       envutil.String("CATALOG_CDN_DOMAIN", ""),
			CredentialsJSON: envutil.String("GOOGLE_CREDENTIALS_JSON", ""),
			CredentialsFile: envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Sync: services.SyncConfig{
			Folders:              envutil.List("CATALOG_FOLDERS"),
			PageSize:             envutil.Int("LIST_PAGE_SIZE", gcp.DefaultPageSize),
			MaxTransientRetries:  envutil.Int("SYNC_MAX_TRANSIENT_RETRIES", 3),
			RetryInitialInterval: envutil.Duration("SYNC_RETRY_INITIAL_INTERVAL", 500*time.Millisecond),
			RetryMaxInterval:     envutil.Duration("SYNC_RETRY_MAX_INTERVAL", 30*time.Second),
		},
		SyncOnStart: envutil.Bool("SYNC_ON_START", true),
		Lock: redis.LockConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Key:      envutil.String("SYNC_LOCK_KEY", "imagerate:catalog-sync"),
			TTL:      envutil.Duration("SYNC_LOCK_TTL", 30*time.Minute),
		},
		BackfillMappingDir: envutil.String("BACKFILL_MAPPING_DIR", ""),
		CORSOrigins:        envutil.List("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     envutil.Bool("METRICS_ENABLED", false),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "imagerate"),
			Environment: envutil.String("OTEL_ENVIRONMENT", ""),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseOTLPHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	if cfg.Sync.MaxTransientRetries < 0 {
		return Config{}, fmt.Errorf("SYNC_MAX_TRANSIENT_RETRIES must be >= 0, got %d", cfg.Sync.MaxTransientRetries)
	}

	if log != nil {
		log.Info("Config loaded",
			"db_driver", cfg.DB.Driver,
			"bucket", cfg.Listing.Bucket,
			"object_storage_mode", string(storage.Mode),
			"object_storage_mode_source", storage.ModeSource(),
			"folders", len(cfg.Sync.Folders),
			"sync_on_start", cfg.SyncOnStart,
			"redis_lock", cfg.Lock.Addr != "",
		)
	}
	return cfg, nil
}
