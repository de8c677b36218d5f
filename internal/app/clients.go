package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/imagerate-backend/internal/clients/redis"
	"github.com/yungbote/imagerate-backend/internal/platform/gcp"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type Clients struct {
	// Lister is nil when no bucket is configured. Sync then refuses to run
	// while the read side keeps serving.
	Lister *gcp.Lister
	Lock   services.RunLock

	redisLock *redis.Lock
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients

	// Listing
	if strings.TrimSpace(cfg.Listing.Bucket) != "" {
		lister, err := gcp.NewLister(ctx, log, cfg.Listing)
		if err != nil {
			return Clients{}, fmt.Errorf("init listing client: %w", err)
		}
		out.Lister = lister
	} else {
		log.Warn("CATALOG_BUCKET not set; sync disabled")
	}

	// Run lock
	if strings.TrimSpace(cfg.Lock.Addr) != "" {
		lock, err := redis.NewLock(ctx, log, cfg.Lock)
		if err != nil {
			out.Close(log)
			return Clients{}, fmt.Errorf("init redis lock: %w", err)
		}
		out.redisLock = lock
		out.Lock = lock
	} else {
		out.Lock = services.NewLocalRunLock()
	}

	return out, nil
}

// urls falls back to the pure URL builder so exports still carry links when
// listing is off.
func (c Clients) urls(cfg gcp.ListingConfig) services.URLBuilder {
	if c.Lister != nil {
		return c.Lister
	}
	return staticURLs(cfg)
}

type staticURLs gcp.ListingConfig

func (s staticURLs) PublicURL(remoteID string) string {
	return gcp.PublicURL(gcp.ListingConfig(s), remoteID)
}

func (c Clients) Close(log *logger.Logger) {
	if c.Lister != nil {
		if err := c.Lister.Close(); err != nil {
			log.Warn("listing client close failed", "error", err)
		}
	}
	if c.redisLock != nil {
		if err := c.redisLock.Close(); err != nil {
			log.Warn("redis lock close failed", "error", err)
		}
	}
}
