package observability

import (
	"fmt"
	"net/http"
)

// PrometheusHandler returns an http.HandlerFunc that exports metrics in
// Prometheus text exposition format at /metrics.
func (m *Metrics) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		snap := m.GetMetrics()
		fmt.Fprintf(w, "# HELP harmony_connections_total Total number of accepted WebSocket connections.\n")
		fmt.Fprintf(w, "# TYPE harmony_connections_total counter\n")
		fmt.Fprintf(w, "harmony_connections_total %d\n\n", snap["connections_total"])

		fmt.Fprintf(w, "# HELP harmony_active_connections Current number of live WebSocket connections.\n")
		fmt.Fprintf(w, "# TYPE harmony_active_connections gauge\n")
		fmt.Fprintf(w, "harmony_active_connections %d\n\n", snap["active_connections"])

		fmt.Fprintf(w, "# HELP harmony_identify_failures_total Identify attempts rejected for a bad token or timeout.\n")
		fmt.Fprintf(w, "# TYPE harmony_identify_failures_total counter\n")
		fmt.Fprintf(w, "harmony_identify_failures_total %d\n\n", snap["identify_failures"])

		fmt.Fprintf(w, "# HELP harmony_events_delivered_total Events written to clients.\n")
		fmt.Fprintf(w, "# TYPE harmony_events_delivered_total counter\n")
		fmt.Fprintf(w, "harmony_events_delivered_total %d\n\n", snap["events_delivered"])

		fmt.Fprintf(w, "# HELP harmony_frames_dropped_total Events discarded because a client's send buffer was full.\n")
		fmt.Fprintf(w, "# TYPE harmony_frames_dropped_total counter\n")
		fmt.Fprintf(w, "harmony_frames_dropped_total %d\n\n", snap["frames_dropped"])

		fmt.Fprintf(w, "# HELP harmony_rate_limit_closes_total Connections closed for exceeding the inbound frame quota.\n")
		fmt.Fprintf(w, "# TYPE harmony_rate_limit_closes_total counter\n")
		fmt.Fprintf(w, "harmony_rate_limit_closes_total %d\n", snap["rate_limit_closes"])
	}
}
