package observability

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Metric primitives rendered in the Prometheus text exposition format.

// family carries what every series of one metric shares.
type family struct {
	name   string
	help   string
	kind   string
	labels []string
}

func (f family) header(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	return err
}

// key renders values as a label set. Missing or empty values become
// "unknown" so every series has the full label set.
func (f family) key(values []string) string {
	if len(f.labels) == 0 {
		return ""
	}
	parts := make([]string, len(f.labels))
	for i, name := range f.labels {
		v := "unknown"
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		parts[i] = name + `="` + escapeLabel(v) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

// bucketKey appends the le label to an already rendered label set.
func bucketKey(key string, le float64) string {
	bound := "+Inf"
	if !math.IsInf(le, 1) {
		bound = strconv.FormatFloat(le, 'g', -1, 64)
	}
	if key == "" {
		return `{le="` + bound + `"}`
	}
	return key[:len(key)-1] + `,le="` + bound + `"}`
}

// atomicFloat is a float64 updated without a lock.
type atomicFloat struct{ bits atomic.Uint64 }

func (a *atomicFloat) add(v float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (a *atomicFloat) set(v float64) { a.bits.Store(math.Float64bits(v)) }
func (a *atomicFloat) load() float64 { return math.Float64frombits(a.bits.Load()) }

type CounterVec struct {
	family
	mu    sync.RWMutex
	cells map[string]*atomicFloat
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{
		family: family{name: name, help: help, kind: "counter", labels: labels},
		cells:  map[string]*atomicFloat{},
	}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Add ignores negative deltas; counters only go up.
func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.cell(c.key(values)).add(v)
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	cell := c.cells[c.key(values)]
	c.mu.RUnlock()
	if cell == nil {
		return 0
	}
	return cell.load()
}

func (c *CounterVec) cell(k string) *atomicFloat {
	c.mu.RLock()
	cell := c.cells[k]
	c.mu.RUnlock()
	if cell != nil {
		return cell
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cell = c.cells[k]; cell == nil {
		cell = &atomicFloat{}
		c.cells[k] = cell
	}
	return cell
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if err := c.header(w); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range sortedKeys(c.cells) {
		if err := writeSeries(w, c.name, k, c.cells[k].load()); err != nil {
			return err
		}
	}
	return nil
}

type Gauge struct {
	family
	val atomicFloat
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{family: family{name: name, help: help, kind: "gauge"}}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.val.set(v)
	}
}

func (g *Gauge) Add(v float64) {
	if g != nil {
		g.val.add(v)
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.val.load()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if err := g.header(w); err != nil {
		return err
	}
	return writeSeries(w, g.name, "", g.val.load())
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	family
	bounds []float64
	mu     sync.Mutex
	series map[string]*histSeries
}

// histSeries holds per-bucket counts, not cumulative ones; cumulation
// happens at render time.
type histSeries struct {
	buckets []uint64
	count   uint64
	sum     float64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	return &HistogramVec{
		family: family{name: name, help: help, kind: "histogram", labels: labels},
		bounds: bounds,
		series: map[string]*histSeries{},
	}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	k := h.key(values)
	// First bound >= v; len(bounds) means only +Inf.
	idx := sort.SearchFloat64s(h.bounds, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.series[k]
	if s == nil {
		s = &histSeries{buckets: make([]uint64, len(h.bounds))}
		h.series[k] = s
	}
	if idx < len(h.bounds) {
		s.buckets[idx]++
	}
	s.count++
	s.sum += v
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := h.header(w); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range sortedKeys(h.series) {
		s := h.series[k]
		var cum uint64
		for i, le := range h.bounds {
			cum += s.buckets[i]
			if err := writeSeries(w, h.name+"_bucket", bucketKey(k, le), float64(cum)); err != nil {
				return err
			}
		}
		if err := writeSeries(w, h.name+"_bucket", bucketKey(k, math.Inf(1)), float64(s.count)); err != nil {
			return err
		}
		if err := writeSeries(w, h.name+"_sum", k, s.sum); err != nil {
			return err
		}
		if err := writeSeries(w, h.name+"_count", k, float64(s.count)); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(w io.Writer, name, key string, v float64) error {
	_, err := io.WriteString(w, name+key+" "+strconv.FormatFloat(v, 'g', -1, 64)+"\n")
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
