// Package feed streams automation outcomes to websocket clients.
//
// The server is a report.Reporter: every outcome the dispatcher emits is
// pushed to all connected clients as JSON, so a dashboard can watch rules
// fire live. New clients first receive a replay of the most recent
// outcomes from a ring buffer, then the live stream.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/pkg/buffer"
	"github.com/c360/ruleflow/report"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Message is the wire format sent to feed clients. Type is "replay" for
// buffered history and "outcome" for live outcomes.
type Message struct {
	Type      string             `json:"type"`
	Timestamp int64              `json:"timestamp"` // Unix milliseconds
	Outcome   automation.Outcome `json:"outcome"`
}

// Config holds the feed server settings.
type Config struct {
	// Addr is the listen address. Use ":0" to pick a free port.
	Addr string
	// Path is the websocket endpoint path.
	Path string
	// HistorySize is how many outcomes are kept for replay to new
	// clients. Zero or less disables replay.
	HistorySize int
	// QueueSize bounds outcomes waiting to be broadcast. When the queue
	// is full, new outcomes are dropped rather than stalling dispatch.
	QueueSize int
}

// DefaultConfig returns the default feed settings.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8082",
		Path:        "/feed",
		HistorySize: 50,
		QueueSize:   256,
	}
}

// client tracks one websocket connection.
type client struct {
	conn        *websocket.Conn
	connectedAt time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
	// gorilla/websocket forbids concurrent writes on one connection.
	writeMu sync.Mutex
}

// Server broadcasts outcomes over websocket. Zero value is not usable;
// construct with New, then Start.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *feedMetrics

	upgrader websocket.Upgrader
	history  buffer.Buffer[automation.Outcome]
	queue    chan automation.Outcome

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	lifecycleMu sync.Mutex
	mu          sync.RWMutex
	running     bool
	listener    net.Listener
	server      *http.Server
	shutdown    chan struct{}
	wg          *sync.WaitGroup
}

var _ report.Reporter = (*Server)(nil)

// New builds a feed server. Addr, Path, and QueueSize fall back to
// DefaultConfig when unset; a HistorySize of zero or less disables
// replay. The registry may be nil.
func New(cfg Config, logger *slog.Logger, registry *metric.MetricsRegistry) (*Server, error) {
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.Path == "" {
		cfg.Path = defaults.Path
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newFeedMetrics(registry)
	if err != nil {
		return nil, err
	}

	var history buffer.Buffer[automation.Outcome]
	if cfg.HistorySize > 0 {
		history, err = buffer.NewCircularBuffer[automation.Outcome](cfg.HistorySize,
			buffer.WithOverflowPolicy[automation.Outcome](buffer.DropOldest))
		if err != nil {
			return nil, err
		}
	}

	return &Server{
		cfg:     cfg,
		logger:  logger.With("component", "feed"),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			// Dashboards connect from arbitrary origins; the feed is
			// read-only, so origin checks buy nothing here.
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		history: history,
		queue:   make(chan automation.Outcome, cfg.QueueSize),
		clients: make(map[*websocket.Conn]*client),
	}, nil
}

// Start binds the listen address and begins serving clients.
func (s *Server) Start(_ context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "feed", "Start", "feed server already running")
	}
	s.mu.Unlock()

	// Drop outcomes queued while stopped; they are stale by now.
drain:
	for {
		select {
		case <-s.queue:
		default:
			break drain
		}
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.WrapTransient(err, "feed", "Start", fmt.Sprintf("listen on %s", s.cfg.Addr))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)

	shutdown := make(chan struct{})
	wg := &sync.WaitGroup{}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{Handler: mux}
	s.shutdown = shutdown
	s.wg = wg
	s.running = true
	server := s.server
	s.mu.Unlock()

	wg.Add(3)
	go s.runServer(wg, server, ln)
	go s.broadcastLoop(wg, shutdown)
	go s.pingLoop(wg, shutdown)

	s.logger.Info("Outcome feed listening", "addr", ln.Addr().String(), "path", s.cfg.Path)
	return nil
}

// Stop closes the listener, disconnects all clients, and waits for the
// server goroutines to exit, up to timeout.
func (s *Server) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.shutdown)
	wg := s.wg
	server := s.server
	s.listener = nil
	s.server = nil
	s.shutdown = nil
	s.wg = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		s.logger.Warn("Feed server shutdown error", "error", err)
	}

	// Websocket connections are hijacked, so Shutdown does not touch
	// them; closing them is what unblocks the read loops.
	s.closeAllClients()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("Feed goroutines did not exit within timeout")
	}
	return nil
}

// Addr returns the bound listen address, or "" when not running. Useful
// with an Addr config of ":0".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Report implements report.Reporter. The outcome lands in the replay
// buffer and is queued for broadcast; when the queue is full the outcome
// is dropped so dispatch never waits on slow clients.
func (s *Server) Report(outcome automation.Outcome) {
	if s.history != nil {
		_ = s.history.Write(outcome)
	}

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return
	}

	select {
	case s.queue <- outcome:
	default:
		s.metrics.recordDropped()
		s.logger.Debug("Feed queue full, dropping outcome",
			"rule", outcome.RuleName, "status", string(outcome.Status))
	}
}

func (s *Server) runServer(wg *sync.WaitGroup, server *http.Server, ln net.Listener) {
	defer wg.Done()

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Feed server failed", "error", err)
	}
}

func (s *Server) broadcastLoop(wg *sync.WaitGroup, shutdown chan struct{}) {
	defer wg.Done()

	for {
		select {
		case <-shutdown:
			return
		case outcome := <-s.queue:
			s.broadcast(outcome)
		}
	}
}

func (s *Server) broadcast(outcome automation.Outcome) {
	data, err := json.Marshal(Message{
		Type:      "outcome",
		Timestamp: time.Now().UnixMilli(),
		Outcome:   outcome,
	})
	if err != nil {
		s.metrics.recordError("marshal")
		return
	}

	conns, infos := s.clientSnapshot()

	var sends sync.WaitGroup
	for _, conn := range conns {
		cl := infos[conn]
		if cl.closed.Load() {
			continue
		}
		sends.Add(1)
		go func(conn *websocket.Conn, cl *client) {
			defer sends.Done()
			if err := s.send(conn, cl, data); err != nil {
				s.metrics.recordError("send")
				s.removeClient(conn, cl)
				return
			}
			s.metrics.recordSent("outcome")
		}(conn, cl)
	}
	sends.Wait()
}

func (s *Server) send(conn *websocket.Conn, cl *client, data []byte) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) clientSnapshot() ([]*websocket.Conn, map[*websocket.Conn]*client) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(s.clients))
	infos := make(map[*websocket.Conn]*client, len(s.clients))
	for conn, cl := range s.clients {
		if !cl.closed.Load() {
			conns = append(conns, conn)
			infos[conn] = cl
		}
	}
	return conns, infos
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.recordError("upgrade")
		return
	}

	cl := &client{conn: conn, connectedAt: time.Now()}

	s.clientsMu.Lock()
	s.clients[conn] = cl
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.metrics.recordConnect(count)
	s.logger.Debug("Feed client connected", "remote", conn.RemoteAddr().String(), "clients", count)

	s.replay(conn, cl)

	s.mu.RLock()
	wg, shutdown := s.wg, s.shutdown
	s.mu.RUnlock()
	if wg == nil {
		s.removeClient(conn, cl)
		return
	}
	wg.Add(1)
	go s.readLoop(wg, shutdown, conn, cl)
}

// replay writes the buffered history to a newly connected client. The
// write lock is held across the whole replay so live broadcasts queue
// behind it. An outcome arriving between the snapshot and the lock can
// land ahead of older history; clients order by the outcome timestamp.
func (s *Server) replay(conn *websocket.Conn, cl *client) {
	if s.history == nil {
		return
	}
	outcomes := s.history.Snapshot()
	if len(outcomes) == 0 {
		return
	}

	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	for _, outcome := range outcomes {
		data, err := json.Marshal(Message{
			Type:      "replay",
			Timestamp: outcome.At.UnixMilli(),
			Outcome:   outcome,
		})
		if err != nil {
			s.metrics.recordError("marshal")
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// The read loop sees the broken connection and cleans up.
			return
		}
		s.metrics.recordSent("replay")
	}
}

// readLoop drains client frames. Clients do not speak; reads only detect
// disconnects and keep pong handling alive.
func (s *Server) readLoop(wg *sync.WaitGroup, shutdown chan struct{}, conn *websocket.Conn, cl *client) {
	defer wg.Done()
	defer s.removeClient(conn, cl)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pingLoop(wg *sync.WaitGroup, shutdown chan struct{}) {
	defer wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			s.pingClients()
		}
	}
}

func (s *Server) pingClients() {
	conns, infos := s.clientSnapshot()
	for _, conn := range conns {
		cl := infos[conn]
		if cl.closed.Load() {
			continue
		}
		cl.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		cl.writeMu.Unlock()
		if err != nil {
			s.removeClient(conn, cl)
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn, cl *client) {
	cl.closeOnce.Do(func() {
		cl.closed.Store(true)

		s.clientsMu.Lock()
		delete(s.clients, conn)
		count := len(s.clients)
		s.clientsMu.Unlock()

		s.metrics.recordDisconnect(count)
		s.logger.Debug("Feed client disconnected",
			"remote", conn.RemoteAddr().String(),
			"connected_for", time.Since(cl.connectedAt).String(),
			"clients", count)
		_ = conn.Close()
	})
}

func (s *Server) closeAllClients() {
	s.clientsMu.Lock()
	clients := s.clients
	s.clients = make(map[*websocket.Conn]*client)
	s.clientsMu.Unlock()

	for conn, cl := range clients {
		cl.closed.Store(true)
		_ = conn.Close()
	}
	s.metrics.setClients(0)
}
