package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	catalogdb "github.com/yungbote/imagerate-backend/internal/data/db"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// CatalogAdmin holds the destructive operations. Nothing calls it implicitly.
type CatalogAdmin interface {
	// Reset drops assets, evaluations and sync state together and recreates
	// the schema. It takes the sync lock so it cannot race a run.
	Reset(ctx context.Context) error
}

type catalogAdmin struct {
	db    *gorm.DB
	log   *logger.Logger
	guard *syncGuard
}

// NewCatalogAdmin must share the RunLock given to the SyncService.
func NewCatalogAdmin(db *gorm.DB, baseLog *logger.Logger, lock RunLock) CatalogAdmin {
	return &catalogAdmin{
		db:    db,
		log:   baseLog.With("service", "CatalogAdmin"),
		guard: newSyncGuard(lock),
	}
}

func (a *catalogAdmin) Reset(ctx context.Context) error {
	_, err := a.guard.do(ctx, "reset", func(ctx context.Context) (*types.SyncReport, error) {
		if err := catalogdb.ResetAll(a.db.WithContext(ctx)); err != nil {
			return nil, domainagg.NewError(domainagg.CodeInternal, "catalog.reset", "reset catalog", err)
		}
		return nil, nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			a.log.Error("Catalog reset failed", "error", err)
		}
		return err
	}
	a.log.Warn("Catalog reset: all assets, evaluations and sync state dropped")
	return nil
}
