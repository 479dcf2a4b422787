// Package observability provides lightweight internal metrics counters for
// the Harmony gateway.
package observability

import "sync/atomic"

// Metrics holds simple atomic counters for key gateway operations.
type Metrics struct {
	connectionsTotal  atomic.Int64
	activeConnections atomic.Int64
	identifyFailures  atomic.Int64
	eventsDelivered   atomic.Int64
	framesDropped     atomic.Int64
	rateLimitCloses   atomic.Int64
}

// NewMetrics returns a zero-initialised Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConnection() {
	m.connectionsTotal.Add(1)
	m.activeConnections.Add(1)
}
func (m *Metrics) DecConnection()      { m.activeConnections.Add(-1) }
func (m *Metrics) IncIdentifyFailure() { m.identifyFailures.Add(1) }
func (m *Metrics) IncEventDelivered()  { m.eventsDelivered.Add(1) }
func (m *Metrics) IncFrameDropped()    { m.framesDropped.Add(1) }
func (m *Metrics) IncRateLimitClose()  { m.rateLimitCloses.Add(1) }

// GetMetrics returns a snapshot of the counters.
func (m *Metrics) GetMetrics() map[string]int64 {
	return map[string]int64{
		"connections_total":  m.connectionsTotal.Load(),
		"active_connections": m.activeConnections.Load(),
		"identify_failures":  m.identifyFailures.Load(),
		"events_delivered":   m.eventsDelivered.Load(),
		"frames_dropped":     m.framesDropped.Load(),
		"rate_limit_closes":  m.rateLimitCloses.Load(),
	}
}
