package catalog

import (
	"gorm.io/gorm"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	"github.com/yungbote/imagerate-backend/internal/platform/ctxutil"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type SyncRunRepo interface {
	Create(dbc dbctx.Context, row *types.SyncRun) error
	Finish(dbc dbctx.Context, row *types.SyncRun) error
	Latest(dbc dbctx.Context, limit int) ([]*types.SyncRun, error)
}

type syncRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	return &syncRunRepo{db: db, log: baseLog.With("repo", "SyncRunRepo")}
}

func (r *syncRunRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *syncRunRepo) Create(dbc dbctx.Context, row *types.SyncRun) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

func (r *syncRunRepo) Finish(dbc dbctx.Context, row *types.SyncRun) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).
		Model(&types.SyncRun{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"finished_at":    row.FinishedAt,
			"added":          row.Added,
			"skipped":        row.Skipped,
			"updated":        row.Updated,
			"rate_limited":   row.RateLimited,
			"cancelled":      row.Cancelled,
			"failed_folders": row.FailedFolders,
		}).Error
}

func (r *syncRunRepo) Latest(dbc dbctx.Context, limit int) ([]*types.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*types.SyncRun
	if err := r.tx(dbc).Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
