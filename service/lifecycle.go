package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/c360/ruleflow/config"
	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/health"
	"github.com/c360/ruleflow/ingest"
	"github.com/c360/ruleflow/store"
	"github.com/c360/ruleflow/store/natskv"
	"github.com/c360/ruleflow/store/sqlite"
)

// healthInterval is how often component health snapshots are refreshed
// for the /health endpoint.
const healthInterval = 15 * time.Second

// Start connects to NATS, opens the rule store, and brings up the
// pipeline back to front: outcome feed, metrics server, then event
// ingest, so sinks are ready before the first event flows. The context
// covers startup and the background lifetime of subscriptions; cancel
// it or call Stop to shut down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Service", "Start", "create a new Service instance")
	}

	s.logger.Info("Starting ruleflow",
		"nats_url", s.cfg.NATS.URL,
		"store_backend", s.cfg.Store.Backend,
		"subject", s.cfg.Ingest.Subject,
	)

	if err := s.connectNATS(ctx); err != nil {
		return err
	}

	rules, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.rules = rules

	in, err := ingest.New(ingest.Config{
		Subject:   s.cfg.Ingest.Subject,
		Workers:   s.cfg.Ingest.Workers,
		QueueSize: s.cfg.Ingest.QueueSize,
	}, s.nats, s.rules, s.engine,
		ingest.WithLogger(s.logger),
		ingest.WithMetrics(s.metrics),
	)
	if err != nil {
		return err
	}
	s.ingestor = in

	if s.feed != nil {
		if err := s.feed.Start(ctx); err != nil {
			return err
		}
		s.logger.Info("Outcome feed serving", "addr", s.feed.Addr(), "path", s.cfg.Feed.Path)
	}

	if s.metricSrv != nil {
		go func() {
			if err := s.metricSrv.Start(); err != nil {
				s.logger.Error("Metrics server failed", "error", err)
			}
		}()
		s.logger.Info("Metrics server listening", "addr", s.metricSrv.Address(), "path", s.cfg.Metrics.Path)
	}

	if err := s.ingestor.Start(ctx); err != nil {
		return err
	}

	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	go s.healthLoop(s.shutdown, s.done)

	s.started = true
	s.logger.Info("Ruleflow started")
	return nil
}

// connectNATS establishes the connection and waits for it to be ready.
func (s *Service) connectNATS(ctx context.Context) error {
	if err := s.nats.Connect(ctx); err != nil {
		return errors.Wrap(err, "Service", "Start", "connect to NATS")
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.NATS.ConnectTimeout)
	defer cancel()
	if err := s.nats.WaitForConnection(waitCtx); err != nil {
		return errors.Wrap(err, "Service", "Start", "wait for NATS connection")
	}

	return nil
}

// openStore builds the configured rule store backend, wrapped with the
// List cache when a TTL is set. Backends that hold resources register
// their close functions for Stop.
func (s *Service) openStore(ctx context.Context) (store.Store, error) {
	var backend store.Store

	switch s.cfg.Store.Backend {
	case config.BackendMemory:
		mem, err := store.NewMemory()
		if err != nil {
			return nil, err
		}
		backend = mem

	case config.BackendFile:
		mem, err := store.NewFromDir(s.cfg.Store.Dir, s.logger)
		if err != nil {
			return nil, err
		}
		backend = mem

	case config.BackendNATSKV:
		kv, err := natskv.New(s.nats)
		if err != nil {
			return nil, err
		}
		backend = kv

	case config.BackendSQLite:
		db, err := sqlite.Open(s.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		backend = db

	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Service", "Start",
			fmt.Sprintf("unknown store backend %q", s.cfg.Store.Backend))
	}

	if s.cfg.Store.CacheTTL > 0 {
		cached, err := store.NewCached(ctx, backend, s.cfg.Store.CacheTTL, s.metrics)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, cached.Close)
		backend = cached
	}

	s.logger.Info("Rule store ready", "backend", s.cfg.Store.Backend, "cache_ttl", s.cfg.Store.CacheTTL)
	return backend, nil
}

// Stop shuts the service down front to back: mark unhealthy, drain
// ingest, stop the dispatcher's delay scheduler, then close the feed,
// metrics server, store, and NATS connection. Each stage gets the full
// timeout. Stop is safe to call more than once and after a failed
// Start; later calls return nil.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	s.monitor.UpdateUnhealthy(s.cfg.Service.Name, "Service stopping")
	s.logger.Info("Stopping ruleflow", "timeout", timeout)

	if s.shutdown != nil {
		close(s.shutdown)
		<-s.done
		s.shutdown = nil
		s.done = nil
	}

	var errs []error

	if s.ingestor != nil {
		if err := s.ingestor.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.engine.Close(); err != nil {
		errs = append(errs, err)
	}

	if s.feed != nil {
		if err := s.feed.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}

	if s.metricSrv != nil {
		if err := s.metricSrv.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.nats.Close(closeCtx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("Ruleflow stopped", "errors", len(errs))

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), "Service", "Stop", "stop components")
	}
	return nil
}

// Health reports the aggregated service health from the most recent
// component snapshots. Before Start and after Stop the service reports
// unhealthy.
func (s *Service) Health() health.Status {
	s.mu.Lock()
	running := s.started && !s.stopped
	s.mu.Unlock()

	if !running {
		return health.NewUnhealthy(s.cfg.Service.Name, "Service not running")
	}
	return s.monitor.AggregateHealth(s.cfg.Service.Name)
}

// healthLoop refreshes component health snapshots until shutdown.
func (s *Service) healthLoop(shutdown, done chan struct{}) {
	defer close(done)

	s.updateHealth()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			s.updateHealth()
		}
	}
}

func (s *Service) updateHealth() {
	if s.nats.IsHealthy() {
		s.monitor.UpdateHealthy("nats", fmt.Sprintf("Connected to %s", s.cfg.NATS.URL))
	} else {
		s.monitor.UpdateUnhealthy("nats", "NATS connection unhealthy")
	}

	s.monitor.Update("ingest", s.ingestor.Health())

	if s.feed != nil {
		if addr := s.feed.Addr(); addr != "" {
			s.monitor.UpdateHealthy("feed", fmt.Sprintf("Serving outcomes on %s", addr))
		} else {
			s.monitor.UpdateUnhealthy("feed", "Feed server not running")
		}
	}
}
