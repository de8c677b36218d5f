package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/data/repos/catalog"
	"github.com/yungbote/imagerate-backend/internal/data/repos/ratings"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type AssetRepo = catalog.AssetRepo
type SyncCursorRepo = catalog.SyncCursorRepo
type SyncRunRepo = catalog.SyncRunRepo

type EvaluationRepo = ratings.EvaluationRepo

// Repos bundles every repository the services need.
type Repos struct {
	Asset      AssetRepo
	SyncCursor SyncCursorRepo
	SyncRun    SyncRunRepo
	Evaluation EvaluationRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Asset:      catalog.NewAssetRepo(db, log),
		SyncCursor: catalog.NewSyncCursorRepo(db, log),
		SyncRun:    catalog.NewSyncRunRepo(db, log),
		Evaluation: ratings.NewEvaluationRepo(db, log),
	}
}
