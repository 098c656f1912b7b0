// Package runtime builds the application from configuration and manages the
// HTTP server lifecycle.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"

	app "github.com/dabbahouse/foodorder/internal/app"
	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/httpapi"
	"github.com/dabbahouse/foodorder/internal/app/services/janitor"
	"github.com/dabbahouse/foodorder/internal/app/storage/postgres"
	redisstore "github.com/dabbahouse/foodorder/internal/app/storage/redis"
	"github.com/dabbahouse/foodorder/internal/config"
	"github.com/dabbahouse/foodorder/internal/httputil"
	"github.com/dabbahouse/foodorder/internal/middleware"
	"github.com/dabbahouse/foodorder/internal/platform/database"
	"github.com/dabbahouse/foodorder/internal/platform/migrations"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Session backends.
const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	api     *httpapi.Handler
	handler http.Handler
	server  *http.Server
	db      *sql.DB
	redis   *goredis.Client
}

// NewApplication constructs the application described by cfg.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.New(cfg.Logging)
	}
	a := &Application{cfg: cfg, log: log}

	generated, err := cfg.EnsureSessionSecret()
	if err != nil {
		return nil, err
	}
	if generated {
		log.Warn("SESSION_SECRET not set; generated a random secret, sessions will not survive a restart")
	}

	stores, err := a.buildStores(ctx)
	if err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	var limiter *middleware.RateLimiter
	var cleaners []janitor.Cleaner
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, log)
		cleaners = append(cleaners, limiter)
	}

	opts := app.Options{
		SessionSecret:     cfg.Sessions.Secret,
		SessionLifetime:   cfg.Sessions.Lifetime,
		CookieSecure:      cfg.Sessions.CookieSecure,
		AdminAllowlist:    cfg.Admin.Allowlist(),
		StrictTransitions: cfg.Orders.StrictTransitions,
		JanitorSchedule:   cfg.Janitor.Schedule,
		Cleaners:          cleaners,
		HTTPClient:        httputil.NewClient(httputil.ClientConfig{}),
	}
	if cfg.OAuth.Enabled() {
		opts.Google = &auth.GoogleConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			UserInfoURL:  cfg.OAuth.UserInfoURL,
		}
	}
	if len(opts.AdminAllowlist) == 0 {
		log.Warn("ADMIN_EMAILS not set; admin self-registration is disabled")
	}

	a.app, err = app.New(stores, opts, log)
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	a.api, err = httpapi.NewHandler(a.app, httpapi.Config{
		AuditSize:            cfg.Audit.Size,
		AuditPath:            cfg.Audit.Path,
		AllowedOrigins:       cfg.Server.AllowedOrigins(),
		OAuthSuccessRedirect: cfg.OAuth.SuccessRedirect,
		Limiter:              limiter,
	})
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins())
	tracing := middleware.NewTracingMiddleware(log.Named("http"))
	a.handler = tracing.Handler(middleware.Recover(log)(cors.Handler(a.api)))

	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

// sessionBackend resolves the configured session store. "auto" prefers redis,
// then postgres, then memory.
func sessionBackend(cfg *config.Config) string {
	switch cfg.Sessions.Store {
	case backendMemory, backendPostgres, backendRedis:
		return cfg.Sessions.Store
	}
	switch {
	case cfg.Sessions.RedisAddr != "":
		return backendRedis
	case cfg.Database.Enabled():
		return backendPostgres
	default:
		return backendMemory
	}
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	var stores app.Stores
	var pg *postgres.Store

	if a.cfg.Database.Enabled() {
		db, err := database.OpenWithConfig(ctx, a.cfg.Database)
		if err != nil {
			return stores, err
		}
		a.db = db
		if a.cfg.Database.Migrate {
			if err := migrations.Apply(ctx, db); err != nil {
				return stores, err
			}
			a.log.WithField("statements", migrations.Count()).Info("database schema applied")
		}
		pg = postgres.New(db)
		stores = app.Stores{
			Users:         pg,
			Admins:        pg,
			Menu:          pg,
			Orders:        pg,
			Announcements: pg,
		}
	} else {
		a.log.Warn("DATABASE_URL not set; using in-memory storage, data is lost on restart")
	}

	backend := sessionBackend(a.cfg)
	switch backend {
	case backendRedis:
		client, err := redisstore.Dial(ctx, a.cfg.Sessions.RedisAddr, a.cfg.Sessions.RedisPassword, a.cfg.Sessions.RedisDB)
		if err != nil {
			return stores, err
		}
		a.redis = client
		stores.Sessions = redisstore.NewSessionStore(client)
	case backendPostgres:
		if pg == nil {
			return stores, fmt.Errorf("postgres session store requires a database")
		}
		stores.Sessions = pg
	}
	a.log.WithField("backend", backend).Info("session store selected")
	return stores, nil
}

// App exposes the wired services.
func (a *Application) App() *app.Application { return a.app }

// Handler returns the full middleware chain.
func (a *Application) Handler() http.Handler { return a.handler }

// Run starts background services and the HTTP server and blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown drains the HTTP server, then stops services and closes backends.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	if err := a.api.Close(); err != nil {
		a.log.WithError(err).Warn("error closing audit log")
	}
	a.closeBackends()
	return errors.Join(errs...)
}

func (a *Application) closeBackends() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
}
