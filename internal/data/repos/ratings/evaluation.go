package ratings

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	"github.com/yungbote/imagerate-backend/internal/domain/ratings"
	"github.com/yungbote/imagerate-backend/internal/platform/ctxutil"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type EvaluationRepo interface {
	// Upsert writes row as the single evaluation for (asset_id, evaluator_id).
	// A repeat submission overwrites the scoring columns in place.
	Upsert(dbc dbctx.Context, row *types.Evaluation) error
	Get(dbc dbctx.Context, assetID int64, evaluatorID string) (*types.Evaluation, error)
	CountByEvaluator(dbc dbctx.Context, evaluatorID string) (int64, error)
	ExportRows(dbc dbctx.Context) ([]*types.ExportRow, error)
	StreamExportRows(dbc dbctx.Context, fn func(row *types.ExportRow) error) error
}

type evaluationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationRepo {
	return &evaluationRepo{db: db, log: baseLog.With("repo", "EvaluationRepo")}
}

func (r *evaluationRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *evaluationRepo) Upsert(dbc dbctx.Context, row *types.Evaluation) error {
	if row == nil || row.AssetID <= 0 || strings.TrimSpace(row.EvaluatorID) == "" {
		return nil
	}
	row.ID = 0
	row.Asset = nil
	return r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}, {Name: "evaluator_id"}},
			DoUpdates: clause.AssignmentColumns(ratings.UpdateColumns),
		}).
		Create(row).Error
}

func (r *evaluationRepo) Get(dbc dbctx.Context, assetID int64, evaluatorID string) (*types.Evaluation, error) {
	var rows []*types.Evaluation
	if err := r.tx(dbc).
		Where("asset_id = ? AND evaluator_id = ?", assetID, evaluatorID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *evaluationRepo) CountByEvaluator(dbc dbctx.Context, evaluatorID string) (int64, error) {
	var n int64
	if err := r.tx(dbc).
		Model(&types.Evaluation{}).
		Where("evaluator_id = ?", evaluatorID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *evaluationRepo) exportQuery(dbc dbctx.Context) *gorm.DB {
	return r.tx(dbc).
		Table("evaluations AS e").
		Select(`a.id AS asset_id, a.remote_id, a.group_id, a.ordinal, a.source_tag,
			a.descriptive_text, a.category, a.variant, a.quality_tier,
			e.id AS evaluation_id, e.evaluator_id, e.submitted_at,
			e.evaluator_name, e.clarity, e.detail_richness, e.color_accuracy, e.lighting_quality,
			e.composition, e.prompt_match, e.style_consistency, e.subject_completeness,
			e.game_usability, e.needs_fix, e.direct_use, e.major_defects, e.minor_issues,
			e.overall_quality, e.grade, e.notes`).
		Joins("JOIN assets AS a ON a.id = e.asset_id").
		Order("a.id ASC, e.evaluator_id ASC")
}

func (r *evaluationRepo) ExportRows(dbc dbctx.Context) ([]*types.ExportRow, error) {
	var out []*types.ExportRow
	if err := r.exportQuery(dbc).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// StreamExportRows walks the export join one row at a time.
func (r *evaluationRepo) StreamExportRows(dbc dbctx.Context, fn func(row *types.ExportRow) error) error {
	q := r.exportQuery(dbc)
	rows, err := q.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var row types.ExportRow
		if err := q.ScanRows(rows, &row); err != nil {
			return err
		}
		if err := fn(&row); err != nil {
			return err
		}
	}
	return rows.Err()
}
