package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/sharedstore/pkg/store"
)

const (
	// DefaultBufferSize is the number of messages queued per client before
	// the client is dropped.
	DefaultBufferSize = 64

	writeWait = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReadOnly disables the write endpoints.
func WithReadOnly(readOnly bool) Option {
	return func(s *Server) {
		s.readOnly = readOnly
	}
}

// WithBufferSize sets the per-client message queue size.
func WithBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// client is one connected WebSocket with its outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server exposes a store over HTTP for development tooling.
//
// Routes:
//
//	GET  /healthz      liveness probe
//	GET  /state        current snapshot as JSON
//	POST /state        apply a JSON object with Update
//	PUT  /state/{key}  apply a JSON value with Set
//	GET  /events       WebSocket stream of store events
//	GET  /metrics      Prometheus metrics
//
// The Server subscribes to the store when created; call Close to release
// the subscription and disconnect clients.
type Server struct {
	store  *store.Store
	router chi.Router
	sub    *store.Subscription

	clients  map[*client]bool
	closed   bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	gatherer   prometheus.Gatherer
	readOnly   bool
	bufferSize int
	logger     *slog.Logger
}

// New creates an inspector for s.
func New(s *store.Store, opts ...Option) *Server {
	srv := &Server{
		store:      s,
		clients:    make(map[*client]bool),
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Development tool; allow all origins
			},
		},
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.logger = srv.logger.With("component", "inspect")
	srv.router = srv.routes()
	srv.sub = s.Subscribe(srv)
	return srv
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", s.handleGetState)
	if !s.readOnly {
		r.Post("/state", s.handleUpdate)
		r.Put("/state/{key}", s.handleSet)
	}
	r.Get("/events", s.HandleWebSocket)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StateResponse is returned by GET /state.
type StateResponse struct {
	State       map[string]any `json:"state"`
	Subscribers int            `json:"subscribers"`
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{
		State:       encodeSnapshot(s.store.State()),
		Subscribers: s.store.Subscribers(),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		http.Error(w, "body must be a JSON object: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.store.Update(partial)
	s.handleGetState(w, r)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		http.Error(w, "body must be a JSON value: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.store.Set(key, value)
	s.handleGetState(w, r)
}

// HandleWebSocket upgrades the connection and streams store events until
// the client disconnects. The first message is an initial snapshot. The
// snapshot is taken while the client is registered, so no event between the
// two is lost; an event already in flight may repeat a change the snapshot
// includes. Connections are refused with 503 once the Server is closed.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.isClosed() {
		http.Error(w, "inspector closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, s.bufferSize)}
	if !s.register(c) {
		conn.Close()
		return
	}

	go s.writeLoop(c)

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.drop(c)
}

// register queues the initial snapshot for c and adds it to the broadcast
// set in one step. It reports false if the Server was closed meanwhile.
func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	data, err := json.Marshal(NewMessage(store.Event{Kind: store.EventInitial, State: s.store.State()}))
	if err != nil {
		s.logger.Warn("failed to encode initial inspector message", "error", err)
	} else {
		c.send <- data
	}
	s.clients[c] = true
	return true
}

func (s *Server) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// writeLoop is the only writer for c.conn.
func (s *Server) writeLoop(c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			s.drop(c)
			return
		}
	}
}

// drop removes c and closes its connection. Safe to call more than once.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	if !s.clients[c] {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c)
	close(c.send)
	s.mu.Unlock()

	c.conn.Close()
}

// OnStoreEvent broadcasts change events to all clients. The subscription's
// initial event is ignored; clients receive their own on connect.
func (s *Server) OnStoreEvent(ev store.Event) {
	if ev.Initial() {
		return
	}
	s.broadcast(NewMessage(ev))
}

// broadcast queues msg for every client. A client whose queue is full is
// dropped instead of blocking the store fan-out.
func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("failed to encode inspector message", "error", err)
		return
	}

	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if !s.enqueue(c, data) {
			s.logger.Warn("inspector client too slow, dropping")
			s.drop(c)
		}
	}
}

// enqueue sends without blocking. It holds the read lock so drop cannot
// close c.send concurrently.
func (s *Server) enqueue(c *client, data []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.clients[c] {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close unsubscribes from the store and closes all client connections.
// Later /events requests are refused.
func (s *Server) Close() {
	s.sub.Unsubscribe()

	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.drop(c)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
