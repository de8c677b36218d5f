package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	"github.com/yungbote/imagerate-backend/internal/platform/ctxutil"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type SyncCursorRepo interface {
	Get(dbc dbctx.Context, folder string) (*types.SyncCursor, error)
	List(dbc dbctx.Context) ([]*types.SyncCursor, error)
	Save(dbc dbctx.Context, folder, pageToken string, completed bool, runID uuid.UUID) error
	DeleteFolders(dbc dbctx.Context, folders []string) error
}

type syncCursorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncCursorRepo(db *gorm.DB, baseLog *logger.Logger) SyncCursorRepo {
	return &syncCursorRepo{db: db, log: baseLog.With("repo", "SyncCursorRepo")}
}

func (r *syncCursorRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *syncCursorRepo) Get(dbc dbctx.Context, folder string) (*types.SyncCursor, error) {
	var rows []*types.SyncCursor
	if err := r.tx(dbc).Where("folder = ?", folder).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *syncCursorRepo) List(dbc dbctx.Context) ([]*types.SyncCursor, error) {
	var out []*types.SyncCursor
	if err := r.tx(dbc).Order("folder ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syncCursorRepo) Save(dbc dbctx.Context, folder, pageToken string, completed bool, runID uuid.UUID) error {
	row := &types.SyncCursor{
		Folder:    strings.TrimSpace(folder),
		PageToken: pageToken,
		Completed: completed,
		LastRunID: runID,
		UpdatedAt: time.Now().UTC(),
	}
	return r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "folder"}},
			DoUpdates: clause.AssignmentColumns([]string{"page_token", "completed", "last_run_id", "updated_at"}),
		}).
		Create(row).Error
}

func (r *syncCursorRepo) DeleteFolders(dbc dbctx.Context, folders []string) error {
	if len(folders) == 0 {
		return nil
	}
	return r.tx(dbc).Where("folder IN ?", folders).Delete(&types.SyncCursor{}).Error
}
