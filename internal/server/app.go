// Package server wires the buildbio server: database and migrations, the
// rate limit store, object storage, the services and both listeners.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/config"
	"github.com/dmitrijs2005/buildbio/internal/server/httpapi"
	"github.com/dmitrijs2005/buildbio/internal/server/observability"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buildbio/internal/server/services"
	"github.com/dmitrijs2005/buildbio/internal/server/storage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/buildbio/internal/server/grpc"
)

const dbConnectTimeout = 30 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	http    *httpapi.HTTPServer
	grpc    *gs.GRPCServer
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger.With("module", "app")}
	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Exporter:     c.TracingExporter,
		OTLPEndpoint: c.OTLPEndpoint,
		Environment:  c.Env,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { return shutdownTracing(context.Background()) })

	app.db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN, dbConnectTimeout)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.db.Close)

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, closeStore, err := newRateLimitStore(c, app.db, repos, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	objects, err := storage.NewS3Storage(ctx, storage.Config{
		Region:        c.S3Region,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		Endpoint:      c.S3BaseEndpoint,
		Bucket:        c.S3Bucket,
		PublicBucket:  c.S3PublicBucket,
		PublicBaseURL: c.S3PublicBaseURL,
		SignedURLTTL:  c.SignedURLTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	svc := httpapi.Services{
		Auth:     services.NewAuthService(app.db, repos, c, logger),
		Profiles: services.NewProfileService(app.db, repos, objects, logger),
		Vehicles: services.NewVehicleService(app.db, repos, objects, logger),
		Mods:     services.NewModService(app.db, repos, objects, logger),
		Images:   services.NewImageService(app.db, repos, objects, logger),
		Public:   services.NewPublicService(app.db, repos, objects, logger),
	}
	limiter := ratelimit.NewLimiter(store, c.IdentifierHashKey, logger)
	app.http = httpapi.NewHTTPServer(c, logger, svc, limiter)

	// A remote store is already served by another instance.
	if c.RateLimitBackend != "remote" {
		app.grpc = gs.NewGRPCServer(c.InternalGRPCAddr, logger, store, c.InternalToken)
	}
	return app, nil
}

// newRateLimitStore builds the configured backend and a func releasing it.
func newRateLimitStore(c *config.Config, db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) (ratelimit.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.RateLimitBackend {
	case "postgres":
		return ratelimit.NewPostgresStore(repos.RateLimits(db), c.CleanupProbability, c.CleanupBatchSize, logger), noop, nil
	case "redis":
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		rdb.AddHook(observability.RedisMetricsHook{})
		return ratelimit.NewRedisStore(rdb), rdb.Close, nil
	case "memory":
		return ratelimit.NewMemoryStore(c.CleanupProbability, c.CleanupBatchSize), noop, nil
	case "remote":
		store, conn, err := gs.DialRemoteStore(c.RateLimitRemoteAddr, c.InternalToken)
		if err != nil {
			return nil, nil, fmt.Errorf("remote rate limit store: %w", err)
		}
		return store, conn.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown rate_limit_backend %q", c.RateLimitBackend)
}

// Run serves until a termination signal arrives or a listener fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	if app.grpc != nil {
		g.Go(func() error { return app.grpc.Run(ctx) })
	}
	err := g.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
	return err
}

// close releases resources in reverse order of acquisition.
func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
	app.closers = nil
}
