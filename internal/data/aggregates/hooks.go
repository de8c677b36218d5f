package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// Hooks receives write-path signals: transaction outcomes, conflicts, and
// listing retries.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

func NoopHooks() Hooks { return noopHooks{} }

type logHooks struct {
	log *logger.Logger
}

// NewLogHooks reports failed writes and retries at warn level. Successful
// writes are logged at debug.
func NewLogHooks(log *logger.Logger) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return &logHooks{log: log.With("component", "WriteHooks")}
}

func (h *logHooks) ObserveOperation(name, status string, dur time.Duration) {
	name = strings.TrimSpace(name)
	if status == "success" {
		h.log.Debug("write committed", "op", name, "duration_ms", dur.Milliseconds())
		return
	}
	h.log.Warn("write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
}

func (h *logHooks) IncConflict(name string) {
	h.log.Warn("write conflict", "op", strings.TrimSpace(name))
}

func (h *logHooks) IncRetry(name string) {
	h.log.Warn("retrying", "op", strings.TrimSpace(name))
}
