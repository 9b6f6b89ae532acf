// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector for replybot. It renders text/plain in Prometheus exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates counters and histograms.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	startTime  time.Time
}

// NewMetricsCollector creates a new collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		startTime:  time.Now(),
	}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records v in every bucket whose upper bound is >= v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func seriesKey(name, labels string) string { return name + "{" + labels + "}" }

// Counter returns or creates the counter identified by name and labels.
// labels is a pre-rendered label set such as `rule="echo"`.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := seriesKey(name, labels)
	c.mu.RLock()
	ctr, ok := c.counters[key]
	c.mu.RUnlock()
	if ok {
		return ctr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok := c.counters[key]; ok {
		return ctr
	}
	ctr = &Counter{name: name, help: help, labels: labels}
	c.counters[key] = ctr
	return ctr
}

// Histogram returns or creates the histogram identified by name and labels.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := seriesKey(name, labels)
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.histograms[key]; ok {
		return h
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	h := &Histogram{name: name, help: help, labels: labels, bounds: bounds, buckets: make([]int64, len(bounds))}
	c.histograms[key] = h
	return h
}

// WriteTo renders every series in Prometheus text format, sorted by series key.
func (c *MetricsCollector) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP replybot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE replybot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "replybot_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	c.mu.RLock()
	counters := make([]*Counter, 0, len(c.counters))
	for _, ctr := range c.counters {
		counters = append(counters, ctr)
	}
	histograms := make([]*Histogram, 0, len(c.histograms))
	for _, h := range c.histograms {
		histograms = append(histograms, h)
	}
	c.mu.RUnlock()

	sort.Slice(counters, func(i, j int) bool {
		return seriesKey(counters[i].name, counters[i].labels) < seriesKey(counters[j].name, counters[j].labels)
	})
	sort.Slice(histograms, func(i, j int) bool {
		return seriesKey(histograms[i].name, histograms[i].labels) < seriesKey(histograms[j].name, histograms[j].labels)
	})

	lastName := ""
	for _, ctr := range counters {
		if ctr.name != lastName {
			fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n", ctr.name, ctr.help, ctr.name)
			lastName = ctr.name
		}
		fmt.Fprintf(&sb, "%s %d\n", series(ctr.name, ctr.labels), ctr.Value())
	}

	for _, h := range histograms {
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
		for i, le := range h.bounds {
			leStr := fmt.Sprintf("%g", le)
			if math.IsInf(le, 1) {
				leStr = "+Inf"
			}
			fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_bucket", joinLabels(h.labels, `le="`+leStr+`"`)), h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_bucket", joinLabels(h.labels, `le="+Inf"`)), h.count)
		fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_count", h.labels), h.count)
		fmt.Fprintf(&sb, "%s %f\n", series(h.name+"_sum", h.labels), h.sum)
		h.mu.Unlock()
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func series(name, labels string) string {
	if labels == "" {
		return name
	}
	return name + "{" + labels + "}"
}

func joinLabels(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

// Handler returns an http.HandlerFunc that renders metrics in Prometheus text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = c.WriteTo(w)
	}
}

// --- Pre-defined metrics used across the application ---

var (
	UpdatesTotal    = Collector.Counter("replybot_updates_total", "Total updates dispatched", "")
	CommandsIgnored = Collector.Counter("replybot_commands_ignored_total", "Unregistered commands ignored", "")
	HandlerErrors   = Collector.Counter("replybot_handler_errors_total", "Handler failures routed to the error handler", "")
	HandlerPanics   = Collector.Counter("replybot_handler_panics_total", "Handler panics recovered by the dispatcher", "")
	ApologiesSent   = Collector.Counter("replybot_apologies_total", "Apology replies attempted after a failure", "")
	ApologyFailures = Collector.Counter("replybot_apology_failures_total", "Apology replies that could not be delivered", "")

	HandleLatency = Collector.Histogram("replybot_handle_latency_seconds", "Update handling latency in seconds", "",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10})
)

// RuleReplies returns the reply counter for a classifier rule or command.
func RuleReplies(rule string) *Counter {
	return Collector.Counter("replybot_replies_total", "Replies sent, by rule", `rule="`+rule+`"`)
}
