package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"provenant-hq/scribe/pkg/ledger"
	"provenant-hq/scribe/pkg/ledger/chain"
)

// Target is a hash-chained log the monitor guards. Both the decision
// ledger and the LLM call audit service satisfy it.
type Target interface {
	// Path returns the log file's path.
	Path() string

	// Verifier returns the log's chain verifier.
	Verifier() *chain.Verifier

	// VerifyIntegrity runs a full chain verification.
	VerifyIntegrity(ctx context.Context) (*ledger.VerifyResult, error)
}

// Config contains configuration for the integrity monitor.
type Config struct {
	// DebounceInterval is the quiet period after a file event before
	// re-verification runs (default: 500ms). Appends through the ledger
	// itself also fire events, so the debounce absorbs write bursts.
	DebounceInterval time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
	}
}

// Monitor watches log files for modification and re-verifies their hash
// chains when they change. Any modification invalidates the target's
// incremental verification cache, so out-of-band edits (a truncation, a
// rewritten line) surface in the next verification instead of hiding
// behind a stale cached prefix.
type Monitor struct {
	watcher  *fsnotify.Watcher
	targets  map[string]Target
	config   *Config
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a monitor over the given targets.
func New(config *Config, targets ...Target) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("monitor needs at least one target")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	byPath := make(map[string]Target, len(targets))
	for _, target := range targets {
		byPath[filepath.Clean(target.Path())] = target
	}

	return &Monitor{
		watcher:  watcher,
		targets:  byPath,
		config:   config,
		logger:   slog.Default().With("component", "ledger.monitor"),
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching the targets' directories and re-verifies a
// target whenever its log file changes. Blocks until the context is
// cancelled or Stop is called.
func (m *Monitor) Watch(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(m.doneCh)
	}()

	// Watch parent directories: the log file may not exist yet, and
	// watching the directory also catches renames over the file.
	dirs := make(map[string]struct{})
	for path := range m.targets {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := m.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
	}

	m.logger.Info("integrity monitor started",
		"targets", len(m.targets),
		"debounce_ms", m.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("integrity monitor stopped (context cancelled)")
			return nil

		case <-m.stopCh:
			m.logger.Info("integrity monitor stopped")
			return nil

		case event, ok := <-m.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			target, watched := m.targets[filepath.Clean(event.Name)]
			if !watched || event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			m.logger.Debug("log file event", "path", event.Name, "op", event.Op.String())
			target.Verifier().Invalidate()
			m.debounce.trigger(event.Name, func() {
				m.verify(ctx, target)
			})

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			m.logger.Error("integrity monitor watch error", "error", err)
			// Keep watching despite errors.
		}
	}
}

// verify re-runs chain verification for a target and logs the outcome.
func (m *Monitor) verify(ctx context.Context, target Target) {
	result, err := target.VerifyIntegrity(ctx)
	if err != nil {
		m.logger.Error("re-verification failed",
			"path", target.Path(),
			"error", err,
		)
		return
	}
	if !result.Valid {
		m.logger.Error("hash chain broken after file modification",
			"path", target.Path(),
			"break_at", result.BreakAt,
			"reason", result.Reason,
		)
		return
	}
	m.logger.Debug("chain re-verified",
		"path", target.Path(),
		"record_count", result.RecordCount,
	)
}

// Stop stops the monitor and waits for the watch loop to exit.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return m.watcher.Close()
	}
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh
	m.debounce.stop()

	if err := m.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// debouncer collapses rapid per-path event bursts into a single callback
// after a quiet period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timers   map[string]*time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
	}
}

func (d *debouncer) trigger(key string, callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		delete(d.timers, key)
		d.mu.Unlock()
		if !stopped {
			callback()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
