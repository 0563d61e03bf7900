// Package main implements the entry point for the ruleflow daemon.
// Ruleflow is a business process automation engine: events arriving on
// NATS are matched against stored rules, and matched rules dispatch
// actions such as task creation, scheduling, email, inventory
// adjustments, and webhooks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/ruleflow/config"
	"github.com/c360/ruleflow/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ruleflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("Starting ruleflow (business process automation)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	return runWithSignalHandling(svc, cfg.Service.ShutdownTimeout)
}

// initializeCLI parses and validates flags, handling the exit-early
// version and help paths.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the configuration and applies the
// logging flag overrides. Load validates; an empty path runs on
// defaults plus environment overrides.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	return cfg, nil
}

// runWithSignalHandling starts the service and blocks until SIGINT or
// SIGTERM, then shuts down within the configured timeout.
func runWithSignalHandling(svc *service.Service, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := svc.Start(signalCtx); err != nil {
		_ = svc.Stop(shutdownTimeout)
		return fmt.Errorf("start service: %w", err)
	}
	slog.Info("Ruleflow started successfully (event automation ready)")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := svc.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping service", "error", err)
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("Ruleflow shutdown complete")
	return nil
}
