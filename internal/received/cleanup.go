package received

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/metrics"
)

// Cleanup prunes the received registry on two triggers: a cron schedule
// that ages out old uploads, and a filesystem watcher that drops entries
// whose files were deleted out-of-band.
type Cleanup struct {
	registry *Registry
	dir      string
	schedule string
	maxAge   time.Duration // 0 disables age-based deletion
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	cron    *cron.Cron
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	running bool
}

// NewCleanup creates a cleanup handler for the upload directory.
func NewCleanup(registry *Registry, dir, schedule string, maxAge time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Cleanup {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Cleanup{
		registry: registry,
		dir:      dir,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "received.cleanup").Logger(),
		metrics:  m,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the cron schedule and the directory watcher.
func (c *Cleanup) Start() error {
	if c.running {
		return fmt.Errorf("cleanup is already running")
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, c.pruneAged); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}
	c.cron.Start()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.cron.Stop()
		return fmt.Errorf("failed to create directory watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		c.cron.Stop()
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}
	c.watcher = watcher

	c.running = true
	go c.watchLoop()

	c.logger.Info().
		Str("dir", c.dir).
		Str("schedule", c.schedule).
		Dur("max_age", c.maxAge).
		Msg("Received-files cleanup started")

	return nil
}

// Stop stops the schedule and the watcher.
func (c *Cleanup) Stop() error {
	if !c.running {
		return fmt.Errorf("cleanup is not running")
	}

	c.cron.Stop()
	close(c.stopCh)
	c.watcher.Close()
	c.running = false

	c.logger.Info().Msg("Received-files cleanup stopped")
	return nil
}

// watchLoop drops registry entries whose files disappear from disk.
func (c *Cleanup) watchLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if c.registry.Remove(ev.Name) {
				c.metrics.ReceivedFilesPruned.Inc()
				c.logger.Debug().Str("path", ev.Name).Msg("Pruned entry for removed file")
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("Directory watcher error")
		}
	}
}

// pruneAged removes registry entries (and their files) past the max age.
func (c *Cleanup) pruneAged() {
	if c.maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-c.maxAge)
	dropped := c.registry.RemoveOlderThan(cutoff)

	for _, f := range dropped {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Str("path", f.Path).Msg("Failed to delete aged upload")
			continue
		}
		c.metrics.ReceivedFilesPruned.Inc()
	}

	if len(dropped) > 0 {
		c.logger.Info().Int("count", len(dropped)).Msg("Aged out received uploads")
	}
}
