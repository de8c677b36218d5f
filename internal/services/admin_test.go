package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/imagerate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

func TestCatalogAdminReset(t *testing.T) {
	lister := newFakeLister().addFolder("dalle3", 10, "cat_dalle3_1.png")
	h := newHarness(t, lister, SyncConfig{})
	ctx := context.Background()
	_, err := h.sync.Sync(ctx, false)
	require.NoError(t, err)
	a := h.assetsByRemote(t)["dalle3/cat_dalle3_1.png"]
	_, err = h.ledger.Upsert(ctx, a.ID, "r1", types.EvaluationFields{OverallQuality: 3})
	require.NoError(t, err)

	admin := NewCatalogAdmin(h.db, testutil.Logger(t), h.lock)

	// Reset refuses to run while a sync holds the lock.
	release, err := h.lock.Acquire(ctx)
	require.NoError(t, err)
	err = admin.Reset(ctx)
	require.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "got %v", err)
	release()

	require.NoError(t, admin.Reset(ctx))
	require.Empty(t, h.assetsByRemote(t))
	var n int64
	require.NoError(t, h.db.Model(&types.Evaluation{}).Count(&n).Error)
	require.Zero(t, n)

	// The catalog is usable again right away.
	report, err := h.sync.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, report.Added)
}
