// Package runtime builds the application from configuration and serves it
// over HTTP.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq"

	app "github.com/alpex-ai/housing-intelligence/internal/app"
	"github.com/alpex-ai/housing-intelligence/internal/app/cache"
	"github.com/alpex-ai/housing-intelligence/internal/app/httpapi"
	"github.com/alpex-ai/housing-intelligence/internal/app/services/fred"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/postgres"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage/supabase"
	"github.com/alpex-ai/housing-intelligence/internal/config"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	cacheNamespace  = "housing:"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	handler http.Handler
	db      *sql.DB
	closers []io.Closer

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewApplication opens the configured backend, cache and FRED client and
// composes the services. Nothing is started until Run.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.New(cfg.Logging)
	}
	a := &Application{cfg: cfg, log: log}

	stores, err := a.buildStores(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	dashCache, err := a.buildCache(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure cache: %w", err)
	}

	opts := app.Options{
		Cache:    dashCache,
		CacheTTL: cfg.Cache.TTL,
	}
	client, err := fred.NewHTTPClient(nil, cfg.FRED.BaseURL, cfg.FRED.APIKey, cfg.FRED.RequestsPerMinute, log)
	switch {
	case err == nil:
		opts.Source = client
	case !errors.Is(err, fred.ErrMissingAPIKey):
		a.close()
		return nil, fmt.Errorf("configure fred client: %w", err)
	}

	if cfg.Scheduler.Enabled {
		jobs, err := config.JobsFor(cfg.Scheduler)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("configure scheduler: %w", err)
		}
		opts.Jobs = jobs
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.app = application

	var auditSink io.Writer
	if path := cfg.Auth.AuditFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		a.closers = append(a.closers, f)
		auditSink = f
	}

	a.handler = httpapi.NewHandler(application, httpapi.Options{
		CronSecret:  cfg.Auth.CronSecret,
		ZHVIURL:     cfg.Zillow.URL,
		CORSOrigins: cfg.Server.AllowedOrigins(),
		AuditSink:   auditSink,
		Log:         log,
	})
	return a, nil
}

// App exposes the composed services.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler returns the REST handler.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Addr returns the bound listener address once Run has started serving.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run starts the services and the HTTP server and blocks until the context
// is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr(), err)
	}
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	a.mu.Lock()
	a.server, a.listener = server, ln
	a.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).
			WithField("backend", a.cfg.Backend()).
			Info("HTTP server listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and the services, then releases
// the database and cache connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if a.app != nil {
		if err := a.app.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	a.close()
	return errors.Join(errs...)
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("error closing resource")
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	switch a.cfg.Backend() {
	case config.BackendPostgres:
		db, err := openDatabase(a.cfg.Database)
		if err != nil {
			return app.Stores{}, err
		}
		a.db = db
		if a.cfg.Database.Migrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				return app.Stores{}, err
			}
		}
		store := postgres.New(db)
		a.log.Info("using PostgreSQL store")
		return app.Stores{
			Metrics: store, Regional: store, Expenses: store, Crash: store,
			Index: store, Metro: store, Homes: store, Scenarios: store,
		}, nil

	case config.BackendSupabase:
		client, err := supabase.NewClient(supabase.Config{
			URL:        a.cfg.Supabase.URL,
			ServiceKey: a.cfg.Supabase.ServiceKey,
		})
		if err != nil {
			return app.Stores{}, err
		}
		store := supabase.New(client)
		a.log.WithField("url", a.cfg.Supabase.URL).Info("using Supabase REST store")
		return app.Stores{
			Metrics: store, Regional: store, Expenses: store, Crash: store,
			Index: store, Metro: store, Homes: store, Scenarios: store,
		}, nil

	default:
		a.log.Warn("no DATABASE_URL or SUPABASE_URL configured; data is kept in memory")
		return app.Stores{}, nil
	}
}

func (a *Application) buildCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Cache.RedisURL == "" {
		return cache.NewMemory(nil), nil
	}
	rdb, err := cache.DialRedis(ctx, a.cfg.Cache.RedisURL, cacheNamespace)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb)
	a.log.Info("using Redis dashboard cache")
	return rdb, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
