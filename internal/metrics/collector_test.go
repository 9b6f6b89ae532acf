package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_SameSeriesIsShared(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", `rule="echo"`)
	b := c.Counter("x_total", "help", `rule="echo"`)
	a.Inc()
	b.Add(2)
	if a != b {
		t.Fatal("expected the same counter for the same series")
	}
	if a.Value() != 3 {
		t.Errorf("expected 3, got %d", a.Value())
	}
}

func TestWriteTo_RendersSortedCounters(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("replies_total", "Replies", `rule="greeting"`).Inc()
	c.Counter("replies_total", "Replies", `rule="echo"`).Add(4)

	var sb strings.Builder
	if _, err := c.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	if strings.Count(out, "# TYPE replies_total counter") != 1 {
		t.Errorf("expected a single TYPE line, got:\n%s", out)
	}
	echo := strings.Index(out, `replies_total{rule="echo"} 4`)
	greet := strings.Index(out, `replies_total{rule="greeting"} 1`)
	if echo < 0 || greet < 0 {
		t.Fatalf("missing series in output:\n%s", out)
	}
	if echo > greet {
		t.Error("expected series sorted by label")
	}
}

func TestHistogram_Buckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "Latency", "", []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(3)

	if h.Count() != 3 {
		t.Fatalf("expected 3 observations, got %d", h.Count())
	}

	var sb strings.Builder
	_, _ = c.WriteTo(&sb)
	out := sb.String()
	for _, want := range []string{
		`lat_seconds_bucket{le="0.1"} 1`,
		`lat_seconds_bucket{le="1"} 2`,
		`lat_seconds_bucket{le="+Inf"} 3`,
		`lat_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHandler_ContentType(t *testing.T) {
	c := NewMetricsCollector()
	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "replybot_uptime_seconds") {
		t.Error("expected uptime gauge in output")
	}
}
