package services

import (
	"context"
	"strings"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// URLBuilder turns a remote id into a viewable link without a network call.
type URLBuilder interface {
	PublicURL(remoteID string) string
}

// CatalogService is the read side. Nothing here writes.
type CatalogService interface {
	ListAssets(ctx context.Context, filter types.AssetFilter) ([]*types.Asset, int64, error)
	GetAsset(ctx context.Context, id int64) (*types.Asset, error)
	GetProgress(ctx context.Context, evaluatorID string) (types.Progress, error)
	Facets(ctx context.Context) (types.Facets, error)
	ExportEvaluations(ctx context.Context) ([]*types.ExportRow, error)
	StreamEvaluations(ctx context.Context, fn func(row *types.ExportRow) error) error
	AssetURL(remoteID string) string
}

type catalogService struct {
	log    *logger.Logger
	assets repos.AssetRepo
	evals  repos.EvaluationRepo
	urls   URLBuilder
}

func NewCatalogService(baseLog *logger.Logger, r repos.Repos, urls URLBuilder) CatalogService {
	return &catalogService{
		log:    baseLog.With("service", "CatalogService"),
		assets: r.Asset,
		evals:  r.Evaluation,
		urls:   urls,
	}
}

func (s *catalogService) ListAssets(ctx context.Context, filter types.AssetFilter) ([]*types.Asset, int64, error) {
	const op = "catalog.list_assets"
	filter.EvaluatorID = strings.TrimSpace(filter.EvaluatorID)
	switch filter.Status {
	case "", types.StatusAll:
		filter.Status = types.StatusAll
	case types.StatusEvaluated, types.StatusPending:
		if filter.EvaluatorID == "" {
			return nil, 0, domainagg.Validation(op, "status filter requires evaluator_id")
		}
	default:
		return nil, 0, domainagg.Validation(op, "status must be one of all, evaluated, pending")
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, domainagg.Validation(op, "limit and offset must not be negative")
	}
	rows, total, err := s.assets.List(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	return rows, total, nil
}

func (s *catalogService) GetAsset(ctx context.Context, id int64) (*types.Asset, error) {
	row, err := s.assets.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError("catalog.get_asset", err)
	}
	if row == nil {
		return nil, domainagg.NotFound("catalog.get_asset", "asset not found")
	}
	return row, nil
}

func (s *catalogService) GetProgress(ctx context.Context, evaluatorID string) (types.Progress, error) {
	const op = "catalog.progress"
	evaluatorID = strings.TrimSpace(evaluatorID)
	if evaluatorID == "" {
		return types.Progress{}, domainagg.Validation(op, "evaluator_id is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	total, err := s.assets.Count(dbc)
	if err != nil {
		return types.Progress{}, aggregates.MapError(op, err)
	}
	done, err := s.evals.CountByEvaluator(dbc, evaluatorID)
	if err != nil {
		return types.Progress{}, aggregates.MapError(op, err)
	}
	remaining := total - done
	if remaining < 0 {
		remaining = 0
	}
	return types.Progress{Total: total, Completed: done, Remaining: remaining}, nil
}

func (s *catalogService) Facets(ctx context.Context) (types.Facets, error) {
	f, err := s.assets.Facets(dbctx.Context{Ctx: ctx})
	if err != nil {
		return types.Facets{}, aggregates.MapError("catalog.facets", err)
	}
	return f, nil
}

func (s *catalogService) ExportEvaluations(ctx context.Context) ([]*types.ExportRow, error) {
	rows, err := s.evals.ExportRows(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, aggregates.MapError("catalog.export", err)
	}
	return rows, nil
}

func (s *catalogService) StreamEvaluations(ctx context.Context, fn func(row *types.ExportRow) error) error {
	if err := s.evals.StreamExportRows(dbctx.Context{Ctx: ctx}, fn); err != nil {
		return aggregates.MapError("catalog.export", err)
	}
	return nil
}

func (s *catalogService) AssetURL(remoteID string) string {
	if s.urls == nil {
		return ""
	}
	return s.urls.PublicURL(remoteID)
}
