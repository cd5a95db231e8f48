// Package server composes the auth core from configuration and runs it:
// the user store, the session store, the AuthService and the gRPC health
// endpoint, with graceful shutdown on SIGINT/SIGTERM.
//
// The gRPC endpoint serves only health checks and reflection; there is no
// network API for the auth use cases. They are reachable in-process through
// App.Auth, which cmd/cli drives from its operator console. cmd/server runs
// the same composition so deployments can health-check the stores and keep
// the session janitor running.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/clock"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/sessions"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	clock    clock.Clock
	repos    repomanager.RepositoryManager
	sessions sessions.Store
	cache    *sessions.MemoryCache
	auth     *services.AuthService
	probes   map[string]gs.Pinger
	closers  []func() error
}

// NewApp connects the configured stores and builds the AuthService.
// The returned App owns those connections; release them with Close.
func NewApp(ctx context.Context, cfg *config.Config, l logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		config: cfg,
		logger: logging.OrNop(l),
		clock:  clock.System{},
		probes: make(map[string]gs.Pinger),
	}

	if err := app.initUserStore(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.auth = services.NewAuthService(app.repos.Users(), credentials.NewPasswords([]byte(cfg.ServerKey)),
		app.sessions, app.clock, app.logger, cfg)

	return app, nil
}

func (app *App) initUserStore(ctx context.Context) error {
	switch app.config.UserStore {
	case config.UserStorePostgres:
		levels, err := consistencyLevels(app.config)
		if err != nil {
			return err
		}
		m, err := repomanager.NewPostgresRepositoryManager(ctx, repomanager.PostgresOptions{
			DSN:           app.config.DatabaseDSN,
			ReplicaDSN:    app.config.ReplicaDSN,
			Consistency:   levels,
			Retries:       app.config.ConnectRetries,
			RetryInterval: app.config.ConnectRetryInterval,
		})
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		app.repos = m
	default:
		app.repos = repomanager.NewInMemoryRepositoryManager()
	}
	app.closers = append(app.closers, app.repos.Close)

	if err := app.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.probes["users"] = app.repos.Users()
	app.logger.Info(ctx, "user store ready", "store", app.config.UserStore)
	return nil
}

func (app *App) initSessions(ctx context.Context) error {
	if app.config.SessionScheme == config.SessionSchemeSigned {
		app.sessions = sessions.NewSignedStore([]byte(app.config.ServerKey), app.config.TokenTTLDays, app.clock, app.logger)
		app.logger.Info(ctx, "session store ready", "scheme", app.config.SessionScheme)
		return nil
	}

	var cache sessions.Cache
	switch app.config.SessionBackend {
	case config.SessionBackendRedis:
		client, err := sessions.ConnectRedis(ctx, app.config.RedisURL, app.config.ConnectRetries, app.config.ConnectRetryInterval)
		if err != nil {
			return fmt.Errorf("session cache init error: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		cache = sessions.NewRedisCache(client, app.config.SessionCacheTTL)
	default:
		app.cache = sessions.NewMemoryCache(app.config.SessionCacheTTL)
		cache = app.cache
	}

	store := sessions.NewCacheStore(cache, app.clock, app.logger)
	app.sessions = store
	app.probes["sessions"] = store
	app.logger.Info(ctx, "session store ready", "scheme", app.config.SessionScheme, "backend", app.config.SessionBackend)
	return nil
}

func consistencyLevels(cfg *config.Config) (users.Consistency, error) {
	var (
		levels users.Consistency
		errs   [3]error
	)
	levels.Create, errs[0] = dbx.ParseConsistency(cfg.CreateConsistency)
	levels.Fetch, errs[1] = dbx.ParseConsistency(cfg.FetchConsistency)
	levels.Record, errs[2] = dbx.ParseConsistency(cfg.RecordConsistency)
	return levels, errors.Join(errs[:]...)
}

// Auth returns the composed AuthService.
func (app *App) Auth() *services.AuthService {
	return app.auth
}

// Close releases store connections in reverse order of creation.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.config.HealthCheckInterval, app.probes)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.cache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.cache.RunJanitor(ctx, app.config.SessionCacheTTL, app.clock.Now)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
