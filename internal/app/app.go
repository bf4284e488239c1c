// Package app wires the state container, its modules and the optional
// inspector and snapshot persistence into one application, and hands
// components an explicit service object instead of ambient globals.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/config"
	"github.com/atinyakov/appstate/internal/db"
	"github.com/atinyakov/appstate/internal/metrics"
	"github.com/atinyakov/appstate/internal/modules/auth"
	"github.com/atinyakov/appstate/internal/modules/pagecache"
	"github.com/atinyakov/appstate/internal/modules/user"
	"github.com/atinyakov/appstate/internal/repository"
	"github.com/atinyakov/appstate/internal/server/handler/http"
	"github.com/atinyakov/appstate/internal/service"
	"github.com/atinyakov/appstate/internal/store"
)

const shutdownTimeout = 5 * time.Second

// App owns the store for the lifetime of the mounted application.
type App struct {
	cfg       *config.Options
	log       *zap.Logger
	store     *store.Store
	metrics   *metrics.Metrics
	router    chi.Router
	repo      service.SnapshotRepository
	snapshots *service.SnapshotService
	db        *sql.DB
	closers   []func() error
	detach    func()
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRouter mounts the inspector on an existing router instead of a new one.
func WithRouter(r chi.Router) Option {
	return func(a *App) {
		if r != nil {
			a.router = r
		}
	}
}

// WithSnapshotRepository overrides the snapshot backend chosen from config.
func WithSnapshotRepository(repo service.SnapshotRepository) Option {
	return func(a *App) {
		a.repo = repo
	}
}

// New builds the application: store with the auth, user and page-cache
// modules, metrics, inspector routes and, when configured, snapshot
// persistence. Call Close to release what New opened.
func New(cfg *config.Options, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = &config.Options{}
	}
	a := &App{
		cfg:     cfg,
		log:     zap.NewNop(),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.router == nil {
		a.router = chi.NewRouter()
	}

	a.store = store.New(store.WithLogger(a.log), store.WithRecorder(a.metrics))
	if err := a.store.Register(auth.Module(), user.Module(), pagecache.Module()); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register modules: %w", err)
	}

	if err := a.openSnapshots(); err != nil {
		_ = a.Close()
		return nil, err
	}

	http.NewRouter(
		a.router,
		&http.StateHandler{Store: a.store},
		http.NewWatchHandler(a.store, a.log),
		a.metrics.Handler(),
		cfg.Token,
		a.log,
	)
	return a, nil
}

func (a *App) openSnapshots() error {
	if a.repo == nil {
		switch {
		case a.cfg.DatabaseDSN != "":
			pg, err := db.InitPostgres(a.cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("cannot init database: %w", err)
			}
			a.db = pg
			a.closers = append(a.closers, pg.Close)
			a.repo = repository.NewPostgresSnapshotRepository(pg)
		case a.cfg.RedisAddr != "":
			client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
			a.closers = append(a.closers, client.Close)
			a.repo = repository.NewRedisSnapshotRepository(client)
		default:
			return nil
		}
	}

	sessionID := a.cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	a.snapshots = service.NewSnapshotService(a.repo, sessionID, a.log)
	return nil
}

// Store returns the application's state container.
func (a *App) Store() *store.Store {
	return a.store
}

// Handler returns the router serving the inspector API.
func (a *App) Handler() nethttp.Handler {
	return a.router
}

// Restore loads the persisted snapshot, if any, and starts writing changes
// back. It is a no-op without snapshot persistence. Mount calls it.
func (a *App) Restore(ctx context.Context) error {
	if a.snapshots == nil || a.detach != nil {
		return nil
	}
	found, err := a.snapshots.Restore(ctx, a.store)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	a.log.Info("snapshot persistence enabled",
		zap.String("session", a.snapshots.SessionID()),
		zap.Bool("restored", found),
	)
	a.detach = a.snapshots.Attach(context.WithoutCancel(ctx), a.store)
	return nil
}

// Mount restores state, starts background work and the inspector server when
// an address is configured, then blocks until ctx is done.
func (a *App) Mount(ctx context.Context) error {
	if err := a.Restore(ctx); err != nil {
		return err
	}
	if a.db != nil {
		interval := time.Duration(a.cfg.CleanInterval)
		if interval <= 0 {
			interval = time.Hour
		}
		db.StartExpiredSnapshotCleaner(ctx, a.db, interval, a.log)
	}

	if a.cfg.Addr == "" {
		<-ctx.Done()
		return nil
	}

	server := &nethttp.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting inspector", zap.String("addr", a.cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("inspector: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("inspector shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("inspector: %w", err)
	}
	return nil
}

// Close drains the store, so pending snapshot writes still land, then stops
// write-back and closes the backends.
func (a *App) Close() error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
