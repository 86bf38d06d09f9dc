// Package app wires the favsync components together with dependency
// injection so commands and views receive explicit collaborators instead
// of reaching into singletons.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/openmeet/favsync/internal/api"
	"github.com/openmeet/favsync/internal/catalog"
	"github.com/openmeet/favsync/internal/config"
	"github.com/openmeet/favsync/internal/favorites"
	"github.com/openmeet/favsync/internal/favorites/sqlite"
	"github.com/openmeet/favsync/internal/identity"
	"github.com/openmeet/favsync/internal/notify"
	"github.com/openmeet/favsync/internal/push"
	"github.com/openmeet/favsync/internal/reconcile"
)

// App is the application container.
type App struct {
	cfg    config.Config
	logger *log.Logger

	store      favorites.Store
	notifier   *notify.Notifier
	cache      *favorites.Cache
	watcher    *notify.Watcher
	apiClient  *api.Client
	catalog    *catalog.Client
	provider   identity.Provider
	reconciler *reconcile.Reconciler
	channel    *push.Channel
}

// Option is a function that configures the App.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg config.Config) Option {
	return func(a *App) {
		a.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStore injects a favorites store, bypassing the SQLite default.
func WithStore(store favorites.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithIdentity injects an identity provider.
func WithIdentity(provider identity.Provider) Option {
	return func(a *App) {
		a.provider = provider
	}
}

// WithPushChannel injects a push channel.
func WithPushChannel(ch *push.Channel) Option {
	return func(a *App) {
		a.channel = ch
	}
}

// New builds the application. A failure to open persistent storage is
// not fatal: the app degrades to an in-memory store for this process.
func New(opts ...Option) (*App, error) {
	a := &App{cfg: config.Default()}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
		if level, err := log.ParseLevel(a.cfg.LogLevel); err == nil {
			a.logger.SetLevel(level)
		}
	}

	if a.store == nil {
		a.store = a.openStore()
	}

	a.notifier = notify.NewNotifier()
	a.cache = favorites.NewCache(a.store, a.notifier, a.logger)

	if src, ok := a.store.(notify.VersionSource); ok {
		a.watcher = notify.NewWatcher(src, a.notifier, a.cfg.PollInterval(), a.logger)
	}

	apiClient, err := api.NewClient(a.cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	if name, value, ok := strings.Cut(a.cfg.SessionCookie, "="); ok {
		apiClient.SetSessionCookie(name, value)
	}
	a.apiClient = apiClient

	catalogClient, err := catalog.NewClient(a.cfg.CatalogURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	a.catalog = catalogClient

	if a.provider == nil {
		a.provider = identity.NewAPIProvider(apiClient)
	}

	a.reconciler = reconcile.New(a.cache, apiClient, a.provider, a.logger)

	if a.channel == nil {
		a.channel = push.NewChannel(a.cfg.PushURL, nil, a.logger)
		if name, value, ok := strings.Cut(a.cfg.SessionCookie, "="); ok {
			a.channel.SetHeader("Cookie", name+"="+value)
		}
	}

	return a, nil
}

// openStore opens the shared SQLite database, degrading to memory when
// the directory or database cannot be used.
func (a *App) openStore() favorites.Store {
	dir := a.cfg.ExpandedDataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.logger.Warn("data dir unavailable, favorites will not survive exit", "dir", dir, "err", err)
		return favorites.NewMemory()
	}

	store, err := sqlite.New(filepath.Join(dir, "favsync.db"))
	if err != nil {
		a.logger.Warn("favorites database unavailable, continuing in memory", "err", err)
		return favorites.NewMemory()
	}
	return store
}

// StartWatcher begins cross-process change polling, if the store
// supports it.
func (a *App) StartWatcher() {
	if a.watcher != nil {
		a.watcher.Start()
	}
}

// ConnectPush connects the push channel. Best-effort: a dead channel
// only costs live count updates.
func (a *App) ConnectPush(ctx context.Context) {
	if err := a.channel.Connect(ctx); err != nil {
		a.logger.Warn("push channel unavailable, live counts disabled", "err", err)
	}
}

// Config returns the application configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *log.Logger { return a.logger }

// Cache returns the device-local favorite cache.
func (a *App) Cache() *favorites.Cache { return a.cache }

// Notifier returns the shared change notifier.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Reconciler returns the reconciler.
func (a *App) Reconciler() *reconcile.Reconciler { return a.reconciler }

// Catalog returns the group catalog client.
func (a *App) Catalog() *catalog.Client { return a.catalog }

// Identity returns the identity provider.
func (a *App) Identity() identity.Provider { return a.provider }

// Push returns the push channel.
func (a *App) Push() *push.Channel { return a.channel }

// Close releases every resource the app owns.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.channel.Close()
	a.reconciler.Wait()
	return a.cache.Close()
}
