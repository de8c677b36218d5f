package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type Services struct {
	Sync     services.SyncService
	Ledger   services.LedgerService
	Catalog  services.CatalogService
	Backfill services.BackfillService
	Admin    services.CatalogAdmin
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.Repos, clients Clients, hooks aggregates.Hooks) Services {
	log.Info("Wiring services...")

	// A nil *gcp.Lister must not become a non-nil interface.
	var lister services.Lister
	if clients.Lister != nil {
		lister = clients.Lister
	}

	return Services{
		Sync:     services.NewSyncService(db, log, lister, r, hooks, clients.Lock, cfg.Sync),
		Ledger:   services.NewLedgerService(db, log, r, hooks),
		Catalog:  services.NewCatalogService(log, r, clients.urls(cfg.Listing)),
		Backfill: services.NewBackfillService(db, log, r, hooks),
		Admin:    services.NewCatalogAdmin(db, log, clients.Lock),
	}
}
