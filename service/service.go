// Package service assembles the ruleflow process: one NATS connection,
// a rule store, the match and dispatch engine, event ingest, outcome
// reporting, and the operational HTTP surfaces, all built from a single
// config.Config and torn down in reverse order.
package service

import (
	"log/slog"
	"sync"

	"github.com/c360/ruleflow/config"
	"github.com/c360/ruleflow/dispatch"
	"github.com/c360/ruleflow/engine"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/handler"
	"github.com/c360/ruleflow/handler/natsbridge"
	"github.com/c360/ruleflow/handler/webhook"
	"github.com/c360/ruleflow/health"
	"github.com/c360/ruleflow/ingest"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/natsclient"
	"github.com/c360/ruleflow/report"
	"github.com/c360/ruleflow/report/feed"
	"github.com/c360/ruleflow/store"
)

// Service owns every ruleflow component and runs them as one unit.
// Construct with New, then Start. A Service is single-use: once
// stopped, or once Start has failed, create a new one. After a failed
// Start, call Stop to release whatever was already brought up.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
	monitor *health.Monitor

	nats       *natsclient.Client
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine
	feed       *feed.Server
	metricSrv  *metric.Server

	mu       sync.Mutex
	rules    store.Store
	closers  []func() error
	ingestor *ingest.Ingestor
	shutdown chan struct{}
	done     chan struct{}
	started  bool
	stopped  bool
}

// New validates the configuration and builds every component that
// needs no connectivity: the metrics registry and server, the NATS
// client, the handler registry, the outcome reporters, the dispatcher,
// and the engine. Connecting, opening the rule store, and subscribing
// happen in Start.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Service", "New", "provide a configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:     cfg,
		logger:  logger.With("component", "service"),
		monitor: health.NewMonitor(),
	}

	if cfg.Metrics.Enabled {
		s.metrics = metric.NewMetricsRegistry()
		s.metricSrv = metric.NewServer(s.metrics,
			metric.WithPort(cfg.Metrics.Port),
			metric.WithPath(cfg.Metrics.Path),
			metric.WithHealthHandler(s.monitor.Handler(cfg.Service.Name)),
		)
	}

	nats, err := natsclient.NewClient(cfg.NATS.URL, natsOptions(cfg, s.metrics)...)
	if err != nil {
		return nil, errors.Wrap(err, "Service", "New", "create NATS client")
	}
	s.nats = nats

	handlers, err := s.newHandlers(logger)
	if err != nil {
		return nil, err
	}

	reporter, err := s.newReporter(logger)
	if err != nil {
		return nil, err
	}

	s.dispatcher, err = dispatch.New(handlers, reporter,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, err
	}

	s.engine, err = engine.New(s.dispatcher, logger, s.metrics)
	if err != nil {
		_ = s.dispatcher.Close()
		return nil, err
	}

	return s, nil
}

// natsOptions maps the NATS config section onto client options.
func natsOptions(cfg *config.Config, registry *metric.MetricsRegistry) []natsclient.ClientOption {
	name := cfg.NATS.Name
	if name == "" {
		name = cfg.Service.Name
	}

	opts := []natsclient.ClientOption{
		natsclient.WithName(name),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithTimeout(cfg.NATS.ConnectTimeout),
	}

	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}
	if registry != nil {
		opts = append(opts, natsclient.WithMetrics(registry))
	}

	return opts
}

// newHandlers wires the action handlers: the NATS bridge carries task,
// schedule, email, and inventory commands; webhooks deliver directly
// over HTTP.
func (s *Service) newHandlers(logger *slog.Logger) (*handler.Registry, error) {
	bridge, err := natsbridge.New(s.nats, logger, s.metrics)
	if err != nil {
		return nil, err
	}

	hooks := webhook.New(webhook.Config{Timeout: s.cfg.Dispatch.WebhookTimeout}, logger)

	return bridge.Wire(hooks), nil
}

// newReporter builds the outcome fan-out: structured log, NATS
// publisher, and the websocket feed when enabled.
func (s *Service) newReporter(logger *slog.Logger) (report.Reporter, error) {
	fan := report.Fanout{
		report.NewSlog(logger),
		report.NewNATSPublisher(s.nats, logger),
	}

	if s.cfg.Feed.Enabled {
		srv, err := feed.New(feed.Config{
			Addr:        s.cfg.Feed.Addr,
			Path:        s.cfg.Feed.Path,
			HistorySize: s.cfg.Feed.HistorySize,
			QueueSize:   s.cfg.Feed.QueueSize,
		}, logger, s.metrics)
		if err != nil {
			return nil, err
		}
		s.feed = srv
		fan = append(fan, srv)
	}

	return fan, nil
}

// Rules returns the rule store once the service has started, or nil
// before Start. Management surfaces use it to edit rules while the
// service runs; an edit is picked up on the next event.
func (s *Service) Rules() store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// FeedAddr returns the outcome feed's bound listen address, or "" when
// the feed is disabled or not running. Useful with a configured addr of
// ":0".
func (s *Service) FeedAddr() string {
	if s.feed == nil {
		return ""
	}
	return s.feed.Addr()
}
