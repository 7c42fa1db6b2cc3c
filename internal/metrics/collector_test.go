package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.Counter("pastebot_test_total", "test counter")

	ctr.Inc()
	ctr.Add(4)
	if ctr.Value() != 5 {
		t.Errorf("value = %d, want 5", ctr.Value())
	}

	// Same name returns the same counter.
	if c.Counter("pastebot_test_total", "") != ctr {
		t.Error("counter not reused by name")
	}
}

func TestGauge(t *testing.T) {
	c := NewMetricsCollector()
	g := c.Gauge("pastebot_test_depth", "test gauge")

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 9 {
		t.Errorf("value = %d, want 9", g.Value())
	}
}

func TestHistogram(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("pastebot_test_seconds", "test histogram", []float64{1, 5})

	h.Observe(0.5)
	h.Observe(3)
	h.Observe(100)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count != 3 {
		t.Errorf("count = %d, want 3", h.count)
	}
	if h.buckets[0].count != 1 || h.buckets[1].count != 2 {
		t.Errorf("buckets = %+v", h.buckets)
	}
}

func TestHandlerRendersPrometheusText(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("pastebot_demo_total", "demo counter").Add(7)
	c.Gauge("pastebot_demo_depth", "demo gauge").Set(2)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	for _, want := range []string{
		"# TYPE pastebot_demo_total counter",
		"pastebot_demo_total 7",
		"# TYPE pastebot_demo_depth gauge",
		"pastebot_demo_depth 2",
		"pastebot_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q\n%s", want, body)
		}
	}
}
