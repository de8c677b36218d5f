package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/imagerate-backend/internal/data/repos"
	"github.com/yungbote/imagerate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	httpH "github.com/yungbote/imagerate-backend/internal/http/handlers"
	"github.com/yungbote/imagerate-backend/internal/observability"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type staticLister map[string][]string

func (l staticLister) ListFolder(_ context.Context, folder, _ string, _ int) (types.Page, error) {
	var p types.Page
	for _, name := range l[folder] {
		p.Descriptors = append(p.Descriptors, types.Descriptor{RemoteID: folder + "/" + name})
	}
	return p, nil
}

func (l staticLister) ListFolders(context.Context) ([]string, error) {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	return out, nil
}

type cdnURLs struct{}

func (cdnURLs) PublicURL(remoteID string) string { return "https://cdn.test/" + remoteID }

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	return newTestRouterWithMappings(t, t.TempDir())
}

func newTestRouterWithMappings(t *testing.T, mappingDir string) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	m := observability.NewMetrics(true)
	lister := staticLister{"dalle3": {"char_fant_01_dalle3_1.png", "char_fant_01_dalle3_2.png"}}

	syncSvc := services.NewSyncService(db, log, lister, r, m, services.NewLocalRunLock(), services.SyncConfig{})
	ledger := services.NewLedgerService(db, log, r, m)
	catalog := services.NewCatalogService(log, r, cdnURLs{})
	backfill := services.NewBackfillService(db, log, r, m)

	return NewRouter(RouterConfig{
		Log:               log,
		Metrics:           m,
		HealthHandler:     httpH.NewHealthHandler(nil),
		AssetHandler:      httpH.NewAssetHandler(catalog),
		EvaluationHandler: httpH.NewEvaluationHandler(log, ledger, catalog),
		SyncHandler:       httpH.NewSyncHandler(syncSvc),
		BackfillHandler:   httpH.NewBackfillHandler(backfill, mappingDir),
	}), m
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthcheck(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: want=200 ok got=%d %q", rec.Code, rec.Body.String())
	}
}

func TestSyncThenRateThroughHTTP(t *testing.T) {
	r, m := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	var syncResp struct {
		Report types.SyncReport `json:"report"`
	}
	decode(t, rec, &syncResp)
	if syncResp.Report.Added != 2 || syncResp.Report.MoreRemaining {
		t.Fatalf("sync report: got=%+v", syncResp.Report)
	}
	if got := m.SyncRunCount("resume", "complete"); got != 1 {
		t.Fatalf("sync metrics: want=1 got=%v", got)
	}

	rec = do(t, r, http.MethodGet, "/api/assets?source_tag=dalle3&limit=10", "")
	var list struct {
		Assets []struct {
			ID      int64  `json:"id"`
			GroupID string `json:"group_id"`
			Ordinal int    `json:"ordinal"`
			URL     string `json:"url"`
		} `json:"assets"`
		Total int64 `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 2 || len(list.Assets) != 2 {
		t.Fatalf("list: want 2 assets got=%+v", list)
	}
	first := list.Assets[0]
	if first.GroupID != "char_fant_01" || first.Ordinal != 1 {
		t.Fatalf("parsed identity: got=%+v", first)
	}
	if first.URL != "https://cdn.test/dalle3/char_fant_01_dalle3_1.png" {
		t.Fatalf("url: got=%q", first.URL)
	}

	target := "/api/assets/" + strconv.FormatInt(first.ID, 10) + "/evaluations/r1"
	rec = do(t, r, http.MethodPut, target, `{"overall_quality":4,"grade":"B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPut, target, `{"overall_quality":5,"grade":"A"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put again: want=200 got=%d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, target, "")
	var got struct {
		Evaluation types.Evaluation `json:"evaluation"`
	}
	decode(t, rec, &got)
	if got.Evaluation.OverallQuality != 5 || got.Evaluation.Grade != "A" {
		t.Fatalf("evaluation: got=%+v", got.Evaluation)
	}

	rec = do(t, r, http.MethodGet, "/api/progress?evaluator_id=r1", "")
	var prog struct {
		Progress types.Progress `json:"progress"`
	}
	decode(t, rec, &prog)
	if prog.Progress != (types.Progress{Total: 2, Completed: 1, Remaining: 1}) {
		t.Fatalf("progress: got=%+v", prog.Progress)
	}

	rec = do(t, r, http.MethodGet, "/api/assets?evaluator_id=r1&status=pending", "")
	decode(t, rec, &list)
	if list.Total != 1 || list.Assets[0].Ordinal != 2 {
		t.Fatalf("pending: got=%+v", list)
	}

	rec = do(t, r, http.MethodGet, "/api/evaluations/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: want=200 got=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("export content type: got=%q", ct)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("export rows: want=2 got=%d", len(records))
	}

	rec = do(t, r, http.MethodGet, "/api/evaluations/export?format=json", "")
	var exp struct {
		Count int `json:"count"`
	}
	decode(t, rec, &exp)
	if exp.Count != 1 {
		t.Fatalf("export json count: want=1 got=%d", exp.Count)
	}

	rec = do(t, r, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `imagerate_write_operations_total{op="ledger.upsert",status="success"} 2`) {
		t.Fatalf("metrics missing ledger writes:\n%s", rec.Body.String())
	}
}

func TestErrorStatuses(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := []struct {
		method, target, body string
		want                 int
		code                 string
	}{
		{http.MethodGet, "/api/assets/999", "", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/assets/abc", "", http.StatusBadRequest, "validation"},
		{http.MethodPut, "/api/assets/999/evaluations/r1", `{"overall_quality":3}`, http.StatusNotFound, "not_found"},
		{http.MethodPut, "/api/assets/1/evaluations/r1", `{"overall_quality":`, http.StatusBadRequest, "invalid_body"},
		{http.MethodGet, "/api/assets/1/evaluations/r1", "", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/assets?status=pending", "", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/api/assets?limit=x", "", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/api/progress", "", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/api/evaluations/export?format=xml", "", http.StatusBadRequest, "validation"},
		{http.MethodPost, "/api/backfill", `{"source":"spreadsheet"}`, http.StatusBadRequest, "validation"},
		{http.MethodPost, "/api/backfill", `{"source":"mapping","path":"missing.yaml"}`, http.StatusNotFound, "not_found"},
		{http.MethodPost, "/api/backfill", `{"source":"mapping","path":"/etc/passwd"}`, http.StatusBadRequest, "validation"},
		{http.MethodPost, "/api/backfill", `{"source":"mapping","path":"../outside.yaml"}`, http.StatusBadRequest, "validation"},
	}
	for _, tc := range cases {
		rec := do(t, r, tc.method, tc.target, tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: want=%d got=%d %s", tc.method, tc.target, tc.want, rec.Code, rec.Body.String())
		}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decode(t, rec, &env)
		if env.Error.Code != tc.code {
			t.Fatalf("%s %s: code want=%q got=%q", tc.method, tc.target, tc.code, env.Error.Code)
		}
	}
}

func TestBackfillNone(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/backfill", `{"source":"none"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("backfill: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Report services.BackfillReport `json:"report"`
	}
	decode(t, rec, &resp)
	if resp.Report.Source != "none" {
		t.Fatalf("backfill source: got=%q", resp.Report.Source)
	}
}

func TestBackfillMappingReadsOnlyFromMappingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fields.yaml"), []byte("char_fant_01:\n  category: character\n"), 0o600); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	r, _ := newTestRouterWithMappings(t, dir)

	rec := do(t, r, http.MethodPost, "/api/backfill", `{"source":"mapping","path":"fields.yaml"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("backfill: want=200 got=%d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Report services.BackfillReport `json:"report"`
	}
	decode(t, rec, &resp)
	if resp.Report.Source != "mapping" {
		t.Fatalf("backfill source: got=%q", resp.Report.Source)
	}

	disabled, _ := newTestRouterWithMappings(t, "")
	rec = do(t, disabled, http.MethodPost, "/api/backfill", `{"source":"mapping","path":"fields.yaml"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mapping without dir: want=400 got=%d %s", rec.Code, rec.Body.String())
	}
}
