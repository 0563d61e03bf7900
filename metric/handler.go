package metric

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/ruleflow/errors"
)

// Server exposes the metrics registry over HTTP for Prometheus scraping.
// It also serves a health endpoint so a single port covers both probes.
type Server struct {
	port          int
	path          string
	server        *http.Server
	registry      *MetricsRegistry
	healthHandler http.Handler
	mu            sync.Mutex
}

// ServerOption configures a metrics Server.
type ServerOption func(*Server)

// WithPort sets the listen port. The default is 9090.
func WithPort(port int) ServerOption {
	return func(s *Server) {
		s.port = port
	}
}

// WithPath sets the scrape path. The default is /metrics.
func WithPath(path string) ServerOption {
	return func(s *Server) {
		s.path = path
	}
}

// WithHealthHandler replaces the default /health handler. The service
// installs its aggregated health report here.
func WithHealthHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.healthHandler = h
	}
}

// NewServer creates a metrics server for the given registry.
func NewServer(registry *MetricsRegistry, opts ...ServerOption) *Server {
	s := &Server{
		port:     9090,
		path:     "/metrics",
		registry: registry,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins serving metrics. It blocks until the server stops, so
// callers normally run it in a goroutine. A clean shutdown via Stop
// returns nil.
func (s *Server) Start() error {
	s.mu.Lock()

	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "MetricsServer", "Start", "start metrics server")
	}

	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	if s.healthHandler != nil {
		mux.Handle("/health", s.healthHandler)
	} else {
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "OK")
		})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html>
<head><title>ruleflow metrics</title></head>
<body>
<h1>ruleflow metrics</h1>
<p><a href=%q>Metrics</a></p>
<p><a href="/health">Health</a></p>
</body>
</html>
`, s.path)
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "MetricsServer", "Start", "serve metrics endpoint")
	}
	return nil
}

// Stop shuts down the metrics server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	err := s.server.Close()
	s.server = nil

	if err != nil {
		return errors.Wrap(err, "MetricsServer", "Stop", "close metrics server")
	}
	return nil
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return fmt.Sprintf(":%d", s.port)
}
