package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// LedgerService keeps at most one evaluation per (asset, evaluator).
// Score ranges are not checked here.
type LedgerService interface {
	Upsert(ctx context.Context, assetID int64, evaluatorID string, fields types.EvaluationFields) (*types.Evaluation, error)
	// Get returns nil, nil when the pair has no evaluation.
	Get(ctx context.Context, assetID int64, evaluatorID string) (*types.Evaluation, error)
}

type ledgerService struct {
	log    *logger.Logger
	assets repos.AssetRepo
	evals  repos.EvaluationRepo
	write  aggregates.BaseDeps
	now    func() time.Time
}

func NewLedgerService(db *gorm.DB, baseLog *logger.Logger, r repos.Repos, hooks aggregates.Hooks) LedgerService {
	return &ledgerService{
		log:    baseLog.With("service", "LedgerService"),
		assets: r.Asset,
		evals:  r.Evaluation,
		write:  aggregates.BaseDeps{DB: db, Hooks: hooks},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ledgerService) Upsert(ctx context.Context, assetID int64, evaluatorID string, fields types.EvaluationFields) (*types.Evaluation, error) {
	const op = "ledger.upsert"
	evaluatorID = strings.TrimSpace(evaluatorID)
	if evaluatorID == "" {
		return nil, domainagg.Validation(op, "evaluator_id is required")
	}
	if assetID <= 0 {
		return nil, domainagg.NotFound(op, "asset not found")
	}

	ctx, span := tracer.Start(ctx, "ledger.upsert")
	span.SetAttributes(attribute.Int64("asset.id", assetID))
	defer span.End()

	var out *types.Evaluation
	err := aggregates.ExecuteWrite(ctx, s.write, op, func(dbc dbctx.Context) error {
		asset, err := s.assets.GetByID(dbc, assetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return domainagg.NotFound(op, "asset not found")
		}
		row := &types.Evaluation{
			AssetID:     assetID,
			EvaluatorID: evaluatorID,
			Fields:      fields,
			SubmittedAt: s.now(),
		}
		if err := s.evals.Upsert(dbc, row); err != nil {
			return err
		}
		out, err = s.evals.Get(dbc, assetID, evaluatorID)
		if err != nil {
			return err
		}
		if out == nil {
			return domainagg.NewError(domainagg.CodeInternal, op, "evaluation missing after upsert", nil)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if !domainagg.IsCode(err, domainagg.CodeNotFound) {
			s.log.Warn("Evaluation upsert failed", "asset_id", assetID, "evaluator_id", evaluatorID, "error", err)
		}
		return nil, err
	}
	s.log.Debug("Evaluation saved", "asset_id", assetID, "evaluator_id", evaluatorID, "evaluation_id", out.ID)
	return out, nil
}

func (s *ledgerService) Get(ctx context.Context, assetID int64, evaluatorID string) (*types.Evaluation, error) {
	evaluatorID = strings.TrimSpace(evaluatorID)
	if evaluatorID == "" {
		return nil, domainagg.Validation("ledger.get", "evaluator_id is required")
	}
	row, err := s.evals.Get(dbctx.Context{Ctx: ctx}, assetID, evaluatorID)
	if err != nil {
		return nil, aggregates.MapError("ledger.get", err)
	}
	return row, nil
}
