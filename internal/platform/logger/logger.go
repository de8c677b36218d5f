package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/yungbote/imagerate-backend/internal/platform/ctxutil"
)

// Logger wraps a sugared zap logger. Every key/value pair passes through a
// scrubber first: credentials are replaced and evaluator identities hashed.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         *scrubber
}

func New(mode string) (*Logger, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "test" || mode == "nop" {
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), scrub: scrubberFromEnv()}, nil
	}

	var cfg zap.Config
	if mode == "prod" || mode == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		lvl, err := zap.ParseAtomicLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.Level = lvl
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), scrub: scrubberFromEnv()}, nil
}

// Wrap adopts an existing zap logger, keeping the scrubbing rules.
func Wrap(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar(), scrub: scrubberFromEnv()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.scrub.kvs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.scrub.kvs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.scrub.kvs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.scrub.kvs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.scrub.kvs(keysAndValues)...)
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(l.scrub.kvs(keysAndValues)...),
		scrub:         l.scrub,
	}
}

// WithTrace tags the logger with the trace and request ids carried by ctx.
// Returns l unchanged when ctx carries none.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		return l
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

type scrubAction int

const (
	keep scrubAction = iota
	redact
	hash
)

// Matched by substring against the lower-cased key, first hit wins.
var keyRules = []struct {
	fragment string
	action   scrubAction
}{
	{"password", redact},
	{"secret", redact},
	{"token", redact},
	{"authorization", redact},
	{"api_key", redact},
	{"apikey", redact},
	{"credentials", redact},
	{"dsn", redact},
	{"headers", redact},
	{"evaluator", hash},
	{"rater", hash},
}

type scrubber struct {
	enabled bool
	salt    string
}

func scrubberFromEnv() *scrubber {
	s := &scrubber{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		s.enabled = false
	}
	return s
}

func (s *scrubber) kvs(kv []interface{}) []interface{} {
	if s == nil || !s.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(kv); i += 2 {
		out[i+1] = s.value(fmt.Sprint(kv[i]), kv[i+1])
	}
	return out
}

func (s *scrubber) value(key string, val interface{}) interface{} {
	switch actionFor(key) {
	case redact:
		return "[REDACTED]"
	case hash:
		return s.hash(val)
	}
	switch v := val.(type) {
	case string:
		return scrubString(v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, x := range v {
			if actionFor(k) == redact {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = scrubString(x)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, x := range v {
			out[k] = s.value(k, x)
		}
		return out
	}
	return val
}

func actionFor(key string) scrubAction {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return keep
	}
	for _, r := range keyRules {
		if strings.Contains(key, r.fragment) {
			return r.action
		}
	}
	return keep
}

// scrubString drops the query of signed object URLs and bearer credentials.
func scrubString(v string) string {
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return "[REDACTED]"
	}
	if i := strings.IndexByte(v, '?'); i >= 0 {
		q := strings.ToLower(v[i:])
		if strings.Contains(q, "x-goog-signature=") || strings.Contains(q, "signature=") {
			return v[:i] + "?[REDACTED]"
		}
	}
	return v
}

func (s *scrubber) hash(val interface{}) string {
	raw := ""
	if val != nil {
		raw = strings.TrimSpace(fmt.Sprint(val))
	}
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}
