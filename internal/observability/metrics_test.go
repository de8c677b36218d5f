package observability

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/imagerate-backend/internal/domain"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/api/assets", "200", time.Millisecond)
	m.ObserveOperation("ledger.upsert", "success", time.Millisecond)
	m.IncRetry("sync.list_folder")
	m.ObserveSync(&types.SyncReport{})

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
	if NewMetrics(false) != nil {
		t.Fatalf("NewMetrics(false): want nil")
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(true)
	m.ObserveAPI("GET", "/api/assets", "200", 20*time.Millisecond)
	m.ObserveOperation("sync.apply_page", "success", 3*time.Millisecond)
	m.IncRetry("sync.list_folder")
	m.IncRetry("sync.list_folder")
	m.ObserveSync(&types.SyncReport{
		Mode:          types.SyncModeResume,
		Added:         4,
		RateLimited:   true,
		FailedFolders: []types.FolderFailure{{Folder: "sd15", Code: "fatal"}},
	})

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`imagerate_api_requests_total{method="GET",route="/api/assets",status="200"} 1`,
		`imagerate_api_request_duration_seconds_bucket{method="GET",route="/api/assets",le="0.025"} 1`,
		`imagerate_write_operations_total{op="sync.apply_page",status="success"} 1`,
		`imagerate_retries_total{op="sync.list_folder"} 2`,
		`imagerate_sync_runs_total{mode="resume",outcome="rate_limited"} 1`,
		`imagerate_sync_assets_total{result="added"} 4`,
		`imagerate_sync_failed_folders_total{folder="sd15"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
	if got := m.SyncRunCount("resume", "rate_limited"); got != 1 {
		t.Fatalf("SyncRunCount: want=1 got=%v", got)
	}
}

func TestLabelEscaping(t *testing.T) {
	f := family{name: "x", labels: []string{"folder", "mode"}}
	got := f.key([]string{`a"b\c`})
	want := `{folder="a\"b\\c",mode="unknown"}`
	if got != want {
		t.Fatalf("key: want=%q got=%q", want, got)
	}
	if got := bucketKey("", 0.5); got != `{le="0.5"}` {
		t.Fatalf("bucketKey: got=%q", got)
	}
	if got := bucketKey(`{op="a"}`, math.Inf(1)); got != `{op="a",le="+Inf"}` {
		t.Fatalf("bucketKey(+Inf): got=%q", got)
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := NewHistogramVec("lat", "latency", nil, []float64{1, 0.1})
	for _, v := range []float64{0.0625, 0.5, 0.75, 7} {
		h.Observe(v)
	}
	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	for _, want := range []string{
		`lat_bucket{le="0.1"} 1`,
		`lat_bucket{le="1"} 3`,
		`lat_bucket{le="+Inf"} 4`,
		`lat_count 4`,
		`lat_sum 8.3125`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("histogram missing %q\n%s", want, buf.String())
		}
	}
}

func TestCounterIgnoresNegativeDelta(t *testing.T) {
	c := NewCounterVec("c", "c", []string{"op"})
	c.Add(2, "a")
	c.Add(-5, "a")
	if got := c.Value("a"); got != 2 {
		t.Fatalf("Value: want=2 got=%v", got)
	}
}
