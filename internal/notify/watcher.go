package notify

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPollInterval is the default cross-process poll cadence.
const DefaultPollInterval = 250 * time.Millisecond

// VersionSource reports a monotonically observable storage version. The
// SQLite store's DataVersion has the property that it only moves when a
// different connection commits, so the process that performed a write
// never observes its own write here.
type VersionSource interface {
	DataVersion(ctx context.Context) (int64, error)
}

// Watcher is the cross-process change channel. It polls the version
// source and publishes on the shared notifier when another process has
// written the database.
type Watcher struct {
	src      VersionSource
	notifier *Notifier
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewWatcher creates a watcher publishing on the given notifier. An
// interval of 0 selects DefaultPollInterval.
func NewWatcher(src VersionSource, notifier *Notifier, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		src:      src,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins polling in a background goroutine. Calling Start on a
// stopped watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	stop := w.stop
	w.mu.Unlock()

	go w.run(stop)
}

func (w *Watcher) run(stop chan struct{}) {
	ctx := context.Background()

	last, err := w.src.DataVersion(ctx)
	if err != nil {
		w.logger.Debug("watcher baseline read failed", "err", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			version, err := w.src.DataVersion(ctx)
			if err != nil {
				// Storage may have degraded; keep polling quietly.
				w.logger.Debug("watcher version read failed", "err", err)
				continue
			}
			if version != last {
				last = version
				w.notifier.Publish()
			}
		}
	}
}

// Stop terminates polling. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stop)
}
