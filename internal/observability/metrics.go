package observability

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	types "github.com/yungbote/imagerate-backend/internal/domain"
)

// Metrics is nil when disabled; every method is a no-op on a nil receiver.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	writeOps     *CounterVec
	writeLatency *HistogramVec
	writeRetry   *CounterVec
	writeConfl   *CounterVec

	syncRuns   *CounterVec
	syncAssets *CounterVec
	syncFailed *CounterVec
}

var _ aggregates.Hooks = (*Metrics)(nil)

// NewMetrics returns nil when enabled is false.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	latency := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("imagerate_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("imagerate_api_request_duration_seconds", "API request latency in seconds by method/route.", []string{"method", "route"}, latency),
		apiInflight: NewGauge("imagerate_api_inflight_requests", "In-flight API requests."),

		writeOps:     NewCounterVec("imagerate_write_operations_total", "Catalog write transactions by operation/status.", []string{"op", "status"}),
		writeLatency: NewHistogramVec("imagerate_write_duration_seconds", "Catalog write transaction latency in seconds.", []string{"op"}, latency),
		writeRetry:   NewCounterVec("imagerate_retries_total", "Retries of transient failures by operation.", []string{"op"}),
		writeConfl:   NewCounterVec("imagerate_conflicts_total", "Write conflicts by operation.", []string{"op"}),

		syncRuns:   NewCounterVec("imagerate_sync_runs_total", "Reconciliation runs by mode/outcome.", []string{"mode", "outcome"}),
		syncAssets: NewCounterVec("imagerate_sync_assets_total", "Assets seen by reconciliation, by result.", []string{"result"}),
		syncFailed: NewCounterVec("imagerate_sync_failed_folders_total", "Folders skipped by reconciliation after a fatal error.", []string{"folder"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.writeOps.Inc(name, status)
	m.writeLatency.Observe(dur.Seconds(), name)
}

func (m *Metrics) IncConflict(name string) {
	if m == nil {
		return
	}
	m.writeConfl.Inc(name)
}

func (m *Metrics) IncRetry(name string) {
	if m == nil {
		return
	}
	m.writeRetry.Inc(name)
}

// ObserveSync records the outcome of one reconciliation run.
func (m *Metrics) ObserveSync(report *types.SyncReport) {
	if m == nil || report == nil {
		return
	}
	outcome := "complete"
	switch {
	case report.Cancelled:
		outcome = "cancelled"
	case report.RateLimited:
		outcome = "rate_limited"
	case len(report.FailedFolders) > 0:
		outcome = "partial"
	}
	m.syncRuns.Inc(string(report.Mode), outcome)
	m.syncAssets.Add(float64(report.Added), "added")
	m.syncAssets.Add(float64(report.Skipped), "skipped")
	m.syncAssets.Add(float64(report.Updated), "updated")
	for _, f := range report.FailedFolders {
		m.syncFailed.Inc(f.Folder)
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.writeOps, m.writeLatency, m.writeRetry, m.writeConfl,
		m.syncRuns, m.syncAssets, m.syncFailed,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// SyncRunCount is the number of runs recorded for mode and outcome.
func (m *Metrics) SyncRunCount(mode, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.syncRuns.Value(strings.TrimSpace(mode), strings.TrimSpace(outcome))
}
