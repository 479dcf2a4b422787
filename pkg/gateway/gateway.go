// Package gateway implements the Harmony real-time gateway: it upgrades HTTP
// requests to WebSocket connections, negotiates per-connection settings,
// authenticates identify payloads, and pumps events between clients and the
// event bus.
package gateway

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdaptChat/harmony/pkg/events"
	"github.com/AdaptChat/harmony/pkg/observability"
	"github.com/AdaptChat/harmony/pkg/presence"
	"github.com/AdaptChat/harmony/pkg/session"
	"github.com/AdaptChat/harmony/pkg/wire"
)

const (
	// defaultIdentifyTimeout is how long a client has to deliver a valid
	// identify payload after the hello.
	defaultIdentifyTimeout = 10 * time.Second
	// defaultReadTimeout is the idle deadline refreshed on every inbound
	// frame. Clients keep the connection alive with ping ops.
	defaultReadTimeout = 30 * time.Second
	// defaultWriteTimeout bounds a single frame write.
	defaultWriteTimeout = 10 * time.Second
	// defaultFrameQuota is the inbound frame budget per minute per
	// connection. Exceeding it closes the connection with 1008.
	defaultFrameQuota = 1000
	// defaultShutdownTimeout is how long Close waits for connection
	// goroutines to drain before giving up.
	defaultShutdownTimeout = 5 * time.Second
	// sendBuffer is the per-connection outbound queue depth.
	sendBuffer = 64
)

// Option configures a Server.
type Option func(*Server)

// WithMetrics wires the gateway's counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithIdentifyTimeout overrides how long a client may take to identify.
func WithIdentifyTimeout(d time.Duration) Option {
	return func(s *Server) { s.identifyTimeout = d }
}

// WithReadTimeout overrides the idle read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithFrameQuota overrides the inbound frames-per-minute budget.
func WithFrameQuota(perMinute int) Option {
	return func(s *Server) { s.frameQuota = perMinute }
}

// WithShutdownTimeout overrides how long Close waits for connections to
// drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// Server is the gateway. It implements http.Handler; mount it at the path
// clients dial.
type Server struct {
	directory session.Directory
	presence  presence.Store
	bus       events.Bus
	metrics   *observability.Metrics

	upgrader websocket.Upgrader

	identifyTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	frameQuota      int
	shutdownTimeout time.Duration

	mu    sync.Mutex
	conns map[*conn]struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// New builds a Server over the given directory, presence store, and bus.
func New(dir session.Directory, store presence.Store, bus events.Bus, opts ...Option) *Server {
	s := &Server{
		directory:       dir,
		presence:        store,
		bus:             bus,
		metrics:         observability.NewMetrics(),
		identifyTimeout: defaultIdentifyTimeout,
		readTimeout:     defaultReadTimeout,
		writeTimeout:    defaultWriteTimeout,
		frameQuota:      defaultFrameQuota,
		shutdownTimeout: defaultShutdownTimeout,
		conns:           make(map[*conn]struct{}),
		done:            make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// The gateway is dialled by native clients and the web app alike;
		// token auth happens at identify, not at the HTTP layer.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the gateway's counters.
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

// ServeHTTP upgrades the request and runs the connection until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(w, "gateway is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	settings := wire.SettingsFromQuery(r.URL.Query())
	ip := clientIP(r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("gateway: upgrade from %s: %v", ip, err)
		return
	}

	c := &conn{
		srv:      s,
		ws:       ws,
		settings: settings,
		ip:       ip,
		send:     make(chan *wire.Outbound, sendBuffer),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.metrics.IncConnection()
	s.wg.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		s.metrics.DecConnection()
		s.wg.Done()
	}()

	c.run()
}

// Close stops accepting connections, closes live ones, and waits up to the
// shutdown timeout for their goroutines to drain.
func (s *Server) Close() {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return // already closed
	default:
		close(s.done)
	}
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "gateway shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("gateway: all connections drained")
	case <-time.After(s.shutdownTimeout):
		log.Printf("gateway: shutdown timeout (%v) exceeded, forcing close", s.shutdownTimeout)
	}
}

// clientIP prefers the CF-Connecting-IP header set by the edge proxy and
// falls back to the socket's remote address.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
