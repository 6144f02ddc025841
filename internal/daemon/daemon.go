// Package daemon wires the transfer engine together: store, event bus,
// websocket hub, HTTP server, UI bridge and received-file cleanup share
// one lifecycle here.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yudhap/lanflow/internal/bridge"
	"github.com/yudhap/lanflow/internal/config"
	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/httpserver"
	"github.com/yudhap/lanflow/internal/hub"
	"github.com/yudhap/lanflow/internal/logger"
	"github.com/yudhap/lanflow/internal/metrics"
	"github.com/yudhap/lanflow/internal/netaddr"
	"github.com/yudhap/lanflow/internal/received"
	"github.com/yudhap/lanflow/internal/store"
)

// Daemon is the lanflow service: everything needed to share files and
// text across the LAN from one host.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	metrics  *metrics.Metrics
	bus      *event.Bus
	store    *store.Store
	registry *received.Registry
	resolver *netaddr.Resolver
	hub      *hub.Hub
	bridge   *bridge.Bridge
	server   *httpserver.Server
	cleanup  *received.Cleanup

	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status describes the daemon's current state.
type Status struct {
	Running   bool
	StartTime time.Time
	Uptime    time.Duration
	Clients   int
	Batches   int
	Texts     int
}

// New creates a daemon instance. The optional notifier receives UI
// callbacks; nil falls back to a logging notifier.
func New(cfg *config.Config, log *logger.Logger, notifier bridge.Notifier) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	zlog := log.GetZerolog()

	m := metrics.NewMetrics()
	bus := event.NewBus()
	st := store.New(store.Config{
		MaxBatches: cfg.Share.MaxBatches,
		MaxTexts:   cfg.Share.MaxTexts,
		Bus:        bus,
		Metrics:    m,
	})
	registry := received.NewRegistry()
	resolver := netaddr.NewResolver()

	baseURL := func() (string, error) {
		return resolver.BaseURL(cfg.Server.Port)
	}

	urls := hub.NewURLBuilder(baseURL, zlog)
	h := hub.New(st, urls, zlog, m)

	if notifier == nil {
		notifier = newLogNotifier(zlog)
	}

	br, err := bridge.New(bridge.Config{
		Store:     st,
		Notifier:  notifier,
		BaseURL:   baseURL,
		UploadDir: cfg.Received.Dir,
		Logger:    zlog,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	srv, err := httpserver.NewServer(httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		UploadDir: cfg.Received.Dir,
		Store:     st,
		Registry:  registry,
		Bus:       bus,
		Hub:       h,
		Logger:    zlog,
		Metrics:   m,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	maxAge := time.Duration(cfg.Received.MaxAgeHours) * time.Hour
	cleanup := received.NewCleanup(registry, cfg.Received.Dir, cfg.Received.CleanupSchedule, maxAge, zlog, m)

	d := &Daemon{
		config:   cfg,
		logger:   log,
		metrics:  m,
		bus:      bus,
		store:    st,
		registry: registry,
		resolver: resolver,
		hub:      h,
		bridge:   br,
		server:   srv,
		cleanup:  cleanup,
		ctx:      ctx,
		cancel:   cancel,
	}
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// Start brings every component up. Components that fail to start in a
// recoverable way are logged and skipped; the LAN server failing is fatal.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	log := d.logger.GetZerolog()
	log.Info().Msg("Starting lanflow daemon")

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.hub.Run(d.ctx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.bridge.Run(d.ctx)
	}()

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start LAN server: %w", err)
	}
	log.Info().Msg("LAN server started")

	if err := d.cleanup.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start received-file cleanup")
	} else {
		log.Info().Msg("Received-file cleanup started")
	}

	if url, err := d.resolver.BaseURL(d.config.Server.Port); err == nil {
		log.Info().Str("url", url).Msg("Share page reachable on the LAN")
	} else {
		log.Warn().Err(err).Msg("No LAN address detected; peers cannot connect yet")
	}

	log.Info().Msg("Daemon started")
	return nil
}

// Stop shuts everything down gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	log := d.logger.GetZerolog()
	log.Info().Msg("Stopping lanflow daemon")

	if err := d.cleanup.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop received-file cleanup")
	}

	if err := d.server.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop LAN server")
	}

	d.cancel()
	d.wg.Wait()

	if err := d.lifecycle.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	log.Info().Msg("Daemon stopped")
	return nil
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Status returns the daemon status.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
		Clients: d.hub.ClientCount(),
		Batches: d.store.BatchCount(),
		Texts:   d.store.TextCount(),
	}
	if d.running {
		status.StartTime = d.startTime
		status.Uptime = time.Since(d.startTime)
	}
	return status
}

// Bridge returns the UI bridge.
func (d *Daemon) Bridge() *bridge.Bridge {
	return d.bridge
}

// GetConfig returns the daemon configuration.
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}
