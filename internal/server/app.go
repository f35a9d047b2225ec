// Package server wires configuration, storage, services and transports into
// a running resolver process.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/httpapi"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/qrbind/internal/server/services"

	gs "github.com/dmitrijs2005/qrbind/internal/server/grpc"
)

const connectTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	resolver    *services.ResolverService
	stats       *services.StatsService
}

// NewApp connects to the database and builds the services. The caller owns
// the returned App and must Close it.
func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogLevel, c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN, c.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return newApp(c, db, repomanager.NewPostgresRepositoryManager(), logger), nil
}

func openDB(dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newApp(c *config.Config, db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *App {
	binder := services.NewBindingService(db, m, c, l)

	var follower services.Follower
	if c.FollowRedirects {
		follower = services.NewRedirectFollower(c.MaxRedirectHops, c.RequestTimeout, l)
	}

	return &App{
		config:      c,
		logger:      l,
		db:          db,
		repomanager: m,
		resolver:    services.NewResolverService(db, m, binder, follower, c, l),
		stats:       services.NewStatsService(db, m),
	}
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	return app.repomanager.RunMigrations(ctx, app.db)
}

// Resolve runs a single resolution through the same path as HTTP requests.
func (app *App) Resolve(ctx context.Context, token string) (*services.Resolution, error) {
	return app.resolver.Resolve(ctx, token)
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run migrates the schema and serves HTTP and gRPC until ctx is cancelled,
// a termination signal arrives or one of the servers fails. The first
// server error is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.Migrate(ctx); err != nil {
		return err
	}

	app.initSignalHandler(ctx, cancelFunc)

	handler := httpapi.NewHandler(app.resolver, app.stats, app.db, app.config, app.logger)
	httpServer := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, handler.Routes(), app.config.ShutdownTimeout, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.db, app.config.HealthCheckInterval, app.logger)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		if err == nil {
			return
		}
		app.logger.Error(ctx, err.Error())
		once.Do(func() { firstErr = err })
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		fail(httpServer.Run(ctx))
	}()
	go func() {
		defer wg.Done()
		fail(grpcServer.Run(ctx))
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return firstErr
}
