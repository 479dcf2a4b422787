package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncConnection()
	m.IncConnection()
	m.DecConnection()
	m.IncIdentifyFailure()
	m.IncEventDelivered()
	m.IncEventDelivered()
	m.IncEventDelivered()
	m.IncFrameDropped()
	m.IncRateLimitClose()

	snap := m.GetMetrics()
	if snap["connections_total"] != 2 {
		t.Errorf("connections_total: got %d", snap["connections_total"])
	}
	if snap["active_connections"] != 1 {
		t.Errorf("active_connections: got %d", snap["active_connections"])
	}
	if snap["identify_failures"] != 1 {
		t.Errorf("identify_failures: got %d", snap["identify_failures"])
	}
	if snap["events_delivered"] != 3 {
		t.Errorf("events_delivered: got %d", snap["events_delivered"])
	}
	if snap["frames_dropped"] != 1 {
		t.Errorf("frames_dropped: got %d", snap["frames_dropped"])
	}
	if snap["rate_limit_closes"] != 1 {
		t.Errorf("rate_limit_closes: got %d", snap["rate_limit_closes"])
	}
}

func TestPrometheusHandler(t *testing.T) {
	m := NewMetrics()
	m.IncConnection()
	m.IncEventDelivered()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.PrometheusHandler()(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type: got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE harmony_connections_total counter",
		"harmony_connections_total 1",
		"# TYPE harmony_active_connections gauge",
		"harmony_active_connections 1",
		"harmony_events_delivered_total 1",
		"harmony_rate_limit_closes_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}
