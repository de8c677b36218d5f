package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/imagerate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

type prefixURLs string

func (p prefixURLs) PublicURL(remoteID string) string { return string(p) + remoteID }

func seedCatalog(t *testing.T, h *harness) []*types.Asset {
	t.Helper()
	ctx := context.Background()
	return []*types.Asset{
		testutil.SeedAsset(t, ctx, h.db, "dalle3", "cat_dalle3_1.png", "cat", 1),
		testutil.SeedAsset(t, ctx, h.db, "dalle3", "cat_dalle3_2.png", "cat", 2),
		testutil.SeedAsset(t, ctx, h.db, "sd15", "cat_sd15_1.png", "cat", 1),
		testutil.SeedAsset(t, ctx, h.db, "sd15", "dog_sd15_1.png", "dog", 1),
	}
}

func TestCatalogListAssetsByStatus(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := seedCatalog(t, h)
	testutil.SeedEvaluation(t, ctx, h.db, assets[1].ID, "r1", 4)
	testutil.SeedEvaluation(t, ctx, h.db, assets[3].ID, "r2", 2)

	all, total, err := h.read.ListAssets(ctx, types.AssetFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, all, 4)

	pending, total, err := h.read.ListAssets(ctx, types.AssetFilter{EvaluatorID: "r1", Status: types.StatusPending})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	for _, a := range pending {
		require.NotEqual(t, assets[1].ID, a.ID)
	}

	done, _, err := h.read.ListAssets(ctx, types.AssetFilter{EvaluatorID: "r1", Status: types.StatusEvaluated})
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.Equal(t, assets[1].ID, done[0].ID)

	sd, total, err := h.read.ListAssets(ctx, types.AssetFilter{SourceTag: "sd15", Group: "cat"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "sd15/cat_sd15_1.png", sd[0].RemoteID)

	page, total, err := h.read.ListAssets(ctx, types.AssetFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	require.Equal(t, assets[2].ID, page[0].ID)
}

func TestCatalogListAssetsValidation(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()

	cases := []types.AssetFilter{
		{Status: types.StatusPending},
		{Status: types.StatusEvaluated, EvaluatorID: "  "},
		{Status: "done", EvaluatorID: "r1"},
		{Limit: -1},
		{Offset: -5},
	}
	for _, f := range cases {
		_, _, err := h.read.ListAssets(ctx, f)
		require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "filter %+v: got %v", f, err)
	}
}

func TestCatalogGetAsset(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := seedCatalog(t, h)

	got, err := h.read.GetAsset(ctx, assets[0].ID)
	require.NoError(t, err)
	require.Equal(t, "dalle3/cat_dalle3_1.png", got.RemoteID)

	_, err = h.read.GetAsset(ctx, 12345)
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func TestCatalogProgress(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := seedCatalog(t, h)
	for _, a := range assets[:3] {
		_, err := h.ledger.Upsert(ctx, a.ID, "r1", types.EvaluationFields{OverallQuality: 3})
		require.NoError(t, err)
	}
	// Re-submitting does not count twice.
	_, err := h.ledger.Upsert(ctx, assets[0].ID, "r1", types.EvaluationFields{OverallQuality: 5})
	require.NoError(t, err)

	p, err := h.read.GetProgress(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, types.Progress{Total: 4, Completed: 3, Remaining: 1}, p)

	p, err = h.read.GetProgress(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, types.Progress{Total: 4, Completed: 0, Remaining: 4}, p)

	_, err = h.read.GetProgress(ctx, "")
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
}

func TestCatalogFacets(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := seedCatalog(t, h)
	require.NoError(t, h.db.Model(&types.Asset{}).Where("id = ?", assets[0].ID).
		Updates(map[string]interface{}{"category": "creature", "variant": "pixel"}).Error)

	f, err := h.read.Facets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"dalle3", "sd15"}, f.SourceTags)
	require.Equal(t, []string{"creature"}, f.Categories)
	require.Equal(t, []string{"pixel"}, f.Variants)
}

func TestCatalogAssetURL(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	require.Empty(t, h.read.AssetURL("dalle3/a.png"))

	svc := NewCatalogService(testutil.Logger(t), h.repos, prefixURLs("https://cdn.example.com/"))
	require.Equal(t, "https://cdn.example.com/dalle3/a.png", svc.AssetURL("dalle3/a.png"))
}

func TestWriteExportCSV(t *testing.T) {
	h := newHarness(t, newFakeLister(), SyncConfig{})
	ctx := context.Background()
	assets := seedCatalog(t, h)
	_, err := h.ledger.Upsert(ctx, assets[0].ID, "r1", types.EvaluationFields{
		EvaluatorName:  "Rae",
		OverallQuality: 4,
		NeedsFix:       true,
		Notes:          "hands, again",
	})
	require.NoError(t, err)
	_, err = h.ledger.Upsert(ctx, assets[0].ID, "r0", types.EvaluationFields{OverallQuality: 2})
	require.NoError(t, err)
	_, err = h.ledger.Upsert(ctx, assets[3].ID, "r1", types.EvaluationFields{OverallQuality: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteExportCSV(ctx, h.read, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, ExportColumns, records[0])

	col := func(name string) int {
		for i, c := range ExportColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %q", name)
		return -1
	}
	// Ordered by asset, then evaluator.
	require.Equal(t, "r0", records[1][col("evaluator_id")])
	require.Equal(t, "r1", records[2][col("evaluator_id")])
	require.Equal(t, "dalle3/cat_dalle3_1.png", records[2][col("remote_id")])
	require.Equal(t, "Rae", records[2][col("evaluator_name")])
	require.Equal(t, "true", records[2][col("needs_fix")])
	require.Equal(t, "hands, again", records[2][col("notes")])
	require.Equal(t, "sd15/dog_sd15_1.png", records[3][col("remote_id")])

	rows, err := h.read.ExportEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}
