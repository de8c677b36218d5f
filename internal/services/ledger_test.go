package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/imagerate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

func TestLedgerUpsertReplacesInPlace(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	a := testutil.SeedAsset(t, ctx, h.db, "dalle3", "cat_dalle3_1.png", "cat", 1)

	first, err := h.ledger.Upsert(ctx, a.ID, "r1", types.EvaluationFields{OverallQuality: 4, Notes: "soft edges"})
	require.NoError(t, err)
	require.Equal(t, 4, first.OverallQuality)

	second, err := h.ledger.Upsert(ctx, a.ID, " r1 ", types.EvaluationFields{OverallQuality: 5, Grade: "A"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 5, second.OverallQuality)
	require.Equal(t, "A", second.Grade)
	require.Empty(t, second.Notes, "a repeat submission replaces every field")
	require.False(t, second.SubmittedAt.Before(first.SubmittedAt))

	var n int64
	require.NoError(t, h.db.Model(&types.Evaluation{}).Where("asset_id = ?", a.ID).Count(&n).Error)
	require.EqualValues(t, 1, n)
	require.Equal(t, 2, h.hooks.Count("ledger.upsert", "success"))
}

func TestLedgerUpsertSeparatesEvaluators(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	a := testutil.SeedAsset(t, ctx, h.db, "sd15", "dog_sd15_1", "dog", 1)

	e1, err := h.ledger.Upsert(ctx, a.ID, "r1", types.EvaluationFields{OverallQuality: 2})
	require.NoError(t, err)
	e2, err := h.ledger.Upsert(ctx, a.ID, "r2", types.EvaluationFields{OverallQuality: 3})
	require.NoError(t, err)
	require.NotEqual(t, e1.ID, e2.ID)

	got, err := h.ledger.Get(ctx, a.ID, "r1")
	require.NoError(t, err)
	require.Equal(t, 2, got.OverallQuality)

	missing, err := h.ledger.Get(ctx, a.ID, "r3")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestLedgerUpsertUnknownAsset(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()

	_, err := h.ledger.Upsert(ctx, 999, "r1", types.EvaluationFields{OverallQuality: 3})
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	_, err = h.ledger.Upsert(ctx, 0, "r1", types.EvaluationFields{})
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	var n int64
	require.NoError(t, h.db.Model(&types.Evaluation{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestLedgerUpsertRequiresEvaluator(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	a := testutil.SeedAsset(t, ctx, h.db, "sd15", "dog_sd15_1", "dog", 1)

	_, err := h.ledger.Upsert(ctx, a.ID, "  ", types.EvaluationFields{OverallQuality: 3})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)

	_, err = h.ledger.Get(ctx, a.ID, "")
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
}

func TestLedgerConcurrentSubmissions(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := make([]*types.Asset, 3)
	for i := range assets {
		assets[i] = testutil.SeedAsset(t, ctx, h.db, "dalle3", fmt.Sprintf("cat_dalle3_%d", i+1), "cat", i+1)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3*4*2)
	for _, a := range assets {
		for r := 0; r < 4; r++ {
			for round := 0; round < 2; round++ {
				wg.Add(1)
				go func(assetID int64, evaluator string, score int) {
					defer wg.Done()
					_, err := h.ledger.Upsert(ctx, assetID, evaluator, types.EvaluationFields{OverallQuality: score})
					errs <- err
				}(a.ID, fmt.Sprintf("r%d", r), round+1)
			}
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, h.db.Model(&types.Evaluation{}).Count(&n).Error)
	require.EqualValues(t, 12, n)
}
