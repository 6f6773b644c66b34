// Package app wires the TaskNet client together: credential store, event
// bus, authenticated transport, API client and session.
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"git.sr.ht/~jakintosh/tasknet/internal/config"
	"git.sr.ht/~jakintosh/tasknet/internal/database"
	"git.sr.ht/~jakintosh/tasknet/internal/events"
	"git.sr.ht/~jakintosh/tasknet/pkg/api"
	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
)

var ErrStoreOpen = errors.New("failed to open credential store")

type App struct {
	Config    config.Config
	Store     credentials.Store
	Bus       *events.Bus
	Transport *transport.Transport
	API       *api.Client
	Session   *Session

	closers []io.Closer
}

type Option func(*App)

// WithStore replaces the store the config would open.
func WithStore(s credentials.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// New validates cfg and builds every client component from it.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Bus:    events.NewBus(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Store == nil {
		store, closer, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		a.Store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	refresher := transport.NewHTTPRefresher(
		cfg.APIBase(),
		&http.Client{Timeout: cfg.RefreshTimeout},
	)
	a.Transport = transport.New(
		a.Store,
		refresher,
		transport.WithNotifier(a.Bus),
		transport.WithRefreshTimeout(cfg.RefreshTimeout),
		transport.WithLogLevel(cfg.Level()),
		transport.WithDefaultHeader("Content-Type", "application/json"),
	)

	a.API = api.New(
		cfg.APIBase(),
		&http.Client{Transport: a.Transport, Timeout: cfg.Timeout},
		api.WithAnonymousClient(&http.Client{Timeout: cfg.Timeout}),
	)

	a.Session = newSession(a.Store, a.API, a.Bus, cfg.Level())
	a.closers = append(a.closers, a.Session)

	if fs, ok := a.Store.(*credentials.FileStore); ok {
		if err := fs.Watch(a.Session.storeChanged); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to watch credential file: %w", err)
		}
	}

	logf(cfg.Level(), transport.LogLevelDebug, "using api at %s with %s store", cfg.APIBase(), cfg.Store)
	return a, nil
}

// Close releases the session subscription, watchers and store handles.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(cfg config.Config) (credentials.Store, io.Closer, error) {
	if cfg.Store == config.StoreMemory {
		return credentials.NewMemoryStore(), nil, nil
	}

	path, err := cfg.CredentialPath()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
	}

	switch cfg.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
		}
		db, err := database.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
		}
		return db.CredentialStore(), db, nil
	default:
		fs, err := credentials.NewFileStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
		}
		return fs, fs, nil
	}
}

func logf(configured, level transport.LogLevel, format string, v ...any) {
	if configured >= level {
		log.Printf("app: "+format, v...)
	}
}
