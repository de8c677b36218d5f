package domain

import (
	"github.com/yungbote/imagerate-backend/internal/domain/catalog"
	"github.com/yungbote/imagerate-backend/internal/domain/ratings"
)

type Asset = catalog.Asset
type DescriptiveFields = catalog.DescriptiveFields
type Descriptor = catalog.Descriptor
type Page = catalog.Page
type SyncCursor = catalog.SyncCursor
type SyncRun = catalog.SyncRun
type SyncMode = catalog.SyncMode
type SyncReport = catalog.SyncReport
type FolderFailure = catalog.FolderFailure
type AssetFilter = catalog.AssetFilter
type EvaluationStatus = catalog.EvaluationStatus
type Facets = catalog.Facets

type Evaluation = ratings.Evaluation
type EvaluationFields = ratings.Fields
type Progress = ratings.Progress
type ExportRow = ratings.ExportRow

const (
	SyncModeResume = catalog.SyncModeResume
	SyncModeFresh  = catalog.SyncModeFresh
	SyncModeForce  = catalog.SyncModeForce

	StatusAll       = catalog.StatusAll
	StatusEvaluated = catalog.StatusEvaluated
	StatusPending   = catalog.StatusPending
)

var DescriptiveFromMetadata = catalog.DescriptiveFromMetadata

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&catalog.Asset{},
		&catalog.SyncCursor{},
		&catalog.SyncRun{},
		&ratings.Evaluation{},
	}
}
