package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/haukened/reclaim/internal/reclaim/common/clock"
	"github.com/haukened/reclaim/internal/reclaim/common/log"
	"github.com/haukened/reclaim/internal/reclaim/config"
	"github.com/haukened/reclaim/internal/reclaim/domain"
	"github.com/haukened/reclaim/internal/reclaim/gateways/httpapi"
	"github.com/haukened/reclaim/internal/reclaim/repos/patterncache"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulefile"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore"
	"github.com/haukened/reclaim/internal/reclaim/repos/rulestore/bolt"
	"github.com/haukened/reclaim/internal/reclaim/services/gate"
	"github.com/haukened/reclaim/internal/reclaim/services/monitor"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "reclaimd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the reclaim daemon
type Application struct {
	config   *config.AppConfig
	store    rulestore.Store
	server   *httpapi.Server
	monitor  *monitor.Monitor
	patterns patterncache.Cache
	flips    *atomic.Uint64
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"app":        appName,
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.Log.Level,
		"listen":     cfg.Server.Listen,
		"db":         cfg.Store.DB,
		"rules_dir":  cfg.Store.RulesDir,
		"cache_size": cfg.Gate.PatternCacheSize,
		"interval":   cfg.Monitor.Interval.String(),
	}, "Starting reclaim daemon")

	app, err := buildApplication(cfg, clock.RealClock{})
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Daemon failed")
	}

	log.Info(nil, "reclaim daemon stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig, clk clock.Clock) (*Application, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DB), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := bolt.New(cfg.Store.DB, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	if cfg.Store.RulesDir != "" {
		n, err := seedRules(store, cfg.Store.RulesDir)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load rules directory: %w", err)
		}
		log.Info(map[string]any{"rules_dir": cfg.Store.RulesDir, "rules": n}, "Rule files loaded")
	}

	patterns, err := patterncache.New(cfg.Gate.PatternCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}

	calendar, err := domain.NewDaysOff(cfg.Gate.Holidays)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid holiday calendar: %w", err)
	}

	gateService := gate.New(gate.Options{
		Rules:    store,
		Patterns: patterns,
		Calendar: calendar,
		Clock:    clk,
		Logger:   log.Component("gate"),
	})

	monitorLogger := log.Component("monitor")
	flips := new(atomic.Uint64)
	monitorService := monitor.New(monitor.Options{
		Rules:    store,
		Calendar: calendar,
		Notifier: monitor.Fanout{
			monitor.NewLogNotifier(monitorLogger),
			monitor.NotifierFunc(func(context.Context, monitor.Transition) { flips.Add(1) }),
		},
		Clock:    clk,
		Logger:   monitorLogger,
		Interval: cfg.Monitor.Interval,
	})

	server := httpapi.New(httpapi.Options{
		Addr:   cfg.Server.Listen,
		Gate:   gateService,
		Rules:  store,
		Status: monitorService,
		Clock:  clk,
		Logger: log.Component("http"),
	})

	stats := store.Stats()
	log.Info(map[string]any{
		"rules":    stats.Rules,
		"version":  stats.Version,
		"holidays": calendar.Holidays(),
	}, "Rule store opened")

	return &Application{
		config:   cfg,
		store:    store,
		server:   server,
		monitor:  monitorService,
		patterns: patterns,
		flips:    flips,
	}, nil
}

// seedRules upserts every rule found in dir into the store.
func seedRules(store rulestore.Store, dir string) (int, error) {
	rules, err := rulefile.LoadDirectory(dir)
	if err != nil {
		return 0, err
	}
	for _, r := range rules {
		if existing, err := store.Get(r.ID); err == nil {
			r.CreatedAt = existing.CreatedAt
		}
		if _, err := store.Put(r); err != nil {
			return 0, fmt.Errorf("store rule %s: %w", r.ID, err)
		}
	}
	return len(rules), nil
}

// Run starts the daemon and blocks until ctx is cancelled
func (app *Application) Run(ctx context.Context) error {
	defer func() {
		if err := app.store.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing rule store")
		}
	}()

	if err := app.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.server.Address(),
		"transport": "HTTP",
	}, "reclaim daemon started")

	monitorDone := make(chan struct{})
	go func() {
		app.monitor.Run(ctx)
		close(monitorDone)
	}()

	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.server.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during HTTP shutdown")
	}

	select {
	case <-monitorDone:
		hits, misses, evictions := app.patterns.Stats()
		log.Info(map[string]any{
			"pattern_hits":      hits,
			"pattern_misses":    misses,
			"pattern_evictions": evictions,
			"rule_flips":        app.flips.Load(),
		}, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}
