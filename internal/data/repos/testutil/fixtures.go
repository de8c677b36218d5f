package testutil

import (
	"context"
	"path"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/imagerate-backend/internal/domain"
)

// SeedAsset inserts an asset under folder with the given name and parsed fields.
func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, folder, name, group string, ordinal int) *types.Asset {
	tb.Helper()
	a := &types.Asset{
		RemoteID:  path.Join(folder, name),
		Folder:    folder,
		GroupID:   group,
		Ordinal:   ordinal,
		SourceTag: folder,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}

func SeedEvaluation(tb testing.TB, ctx context.Context, tx *gorm.DB, assetID int64, evaluatorID string, overall int) *types.Evaluation {
	tb.Helper()
	e := &types.Evaluation{
		AssetID:     assetID,
		EvaluatorID: strings.TrimSpace(evaluatorID),
		SubmittedAt: time.Now().UTC(),
	}
	e.OverallQuality = overall
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed evaluation: %v", err)
	}
	return e
}
