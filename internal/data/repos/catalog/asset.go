package catalog

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	"github.com/yungbote/imagerate-backend/internal/platform/ctxutil"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type AssetRepo interface {
	// InsertIfAbsent inserts row unless its remote_id is already cataloged.
	// On insert row.ID is populated; an existing row is never touched.
	InsertIfAbsent(dbc dbctx.Context, row *types.Asset) (bool, error)

	GetByID(dbc dbctx.Context, id int64) (*types.Asset, error)
	GetByRemoteIDs(dbc dbctx.Context, remoteIDs []string) ([]*types.Asset, error)
	ListAfterID(dbc dbctx.Context, afterID int64, limit int) ([]*types.Asset, error)

	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error

	List(dbc dbctx.Context, filter types.AssetFilter) ([]*types.Asset, int64, error)
	Count(dbc dbctx.Context) (int64, error)
	Facets(dbc dbctx.Context) (types.Facets, error)
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *assetRepo) InsertIfAbsent(dbc dbctx.Context, row *types.Asset) (bool, error) {
	if row == nil || strings.TrimSpace(row.RemoteID) == "" {
		return false, nil
	}
	res := r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "remote_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id int64) (*types.Asset, error) {
	if id <= 0 {
		return nil, nil
	}
	var rows []*types.Asset
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *assetRepo) GetByRemoteIDs(dbc dbctx.Context, remoteIDs []string) ([]*types.Asset, error) {
	var out []*types.Asset
	if len(remoteIDs) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("remote_id IN ?", remoteIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) ListAfterID(dbc dbctx.Context, afterID int64, limit int) ([]*types.Asset, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var out []*types.Asset
	if err := r.tx(dbc).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if id <= 0 || len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).
		Model(&types.Asset{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *assetRepo) List(dbc dbctx.Context, filter types.AssetFilter) ([]*types.Asset, int64, error) {
	q := r.tx(dbc).Model(&types.Asset{})
	if v := strings.TrimSpace(filter.Group); v != "" {
		q = q.Where("group_id = ?", v)
	}
	if v := strings.TrimSpace(filter.SourceTag); v != "" {
		q = q.Where("source_tag = ?", v)
	}
	if v := strings.TrimSpace(filter.Category); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := strings.TrimSpace(filter.Variant); v != "" {
		q = q.Where("variant = ?", v)
	}
	if ev := strings.TrimSpace(filter.EvaluatorID); ev != "" {
		const sub = "SELECT 1 FROM evaluations e WHERE e.asset_id = assets.id AND e.evaluator_id = ?"
		switch filter.Status {
		case types.StatusEvaluated:
			q = q.Where("EXISTS ("+sub+")", ev)
		case types.StatusPending:
			q = q.Where("NOT EXISTS ("+sub+")", ev)
		}
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var out []*types.Asset
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *assetRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&types.Asset{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *assetRepo) Facets(dbc dbctx.Context) (types.Facets, error) {
	out := types.Facets{SourceTags: []string{}, Categories: []string{}, Variants: []string{}}
	for col, dst := range map[string]*[]string{
		"source_tag": &out.SourceTags,
		"category":   &out.Categories,
		"variant":    &out.Variants,
	} {
		var vals []string
		if err := r.tx(dbc).
			Model(&types.Asset{}).
			Where(col+" <> ''").
			Distinct().
			Order(col+" ASC").
			Pluck(col, &vals).Error; err != nil {
			return types.Facets{}, err
		}
		if vals != nil {
			*dst = vals
		}
	}
	return out, nil
}
