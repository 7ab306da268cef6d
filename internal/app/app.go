package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/parkgo/internal/allocator"
	"github.com/kirinyoku/parkgo/internal/config"
	"github.com/kirinyoku/parkgo/internal/fee"
	"github.com/kirinyoku/parkgo/internal/postgres"
	"github.com/kirinyoku/parkgo/internal/redis"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/parkgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service"
	"github.com/kirinyoku/parkgo/internal/service/facility"
	"github.com/kirinyoku/parkgo/internal/service/query"
	"github.com/kirinyoku/parkgo/internal/telemetry"
	httpgin "github.com/kirinyoku/parkgo/internal/transport/http/gin"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	telemetry  *telemetry.Provider
	pgPool     *pgxpool.Pool
	rdb        *goredis.Client
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}

	// release whatever was opened if a later step fails
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	calc, err := fee.New(cfg.Parking.FeeRules)
	if err != nil {
		return nil, fmt.Errorf("invalid fee rules: %w", err)
	}

	store := memory.NewStore(calc)

	var (
		deps    facility.Deps
		archive query.ArchiveReader
		cache   *redisrepo.Cache
		closing = make(chan struct{})
		opts    = httpgin.Options{
			Metrics:  httpgin.NewMetrics(),
			Location: cfg.Parking.Location,
			Closing:  closing,
		}
	)

	if cfg.Telemetry.Enabled {
		opts.ServiceName = cfg.Telemetry.ServiceName
	}

	if cfg.Postgres.Enabled() {
		dsn := postgres.DSN(
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.Name,
			cfg.Postgres.SSLMode,
		)

		a.pgPool, err = postgres.New(ctx, postgres.Config{DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}

		pgStore := postgresrepo.NewStore(a.pgPool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare record archive: %w", err)
		}

		repo := pgStore.Archive()
		deps.Archive = repo
		archive = repo

		logger.Info("record archive enabled", slog.String("host", cfg.Postgres.Host), slog.String("db", cfg.Postgres.Name))
	}

	if cfg.Redis.Enabled() {
		a.rdb, err = redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		cache = redisrepo.New(a.rdb)
		pubsub := redisrepo.NewLotPubSub(a.rdb)

		deps.Cache = cache
		deps.Events = pubsub
		opts.Events = pubsub
		opts.Idempotency = redisrepo.NewIdempotencyStore(a.rdb, cfg.Redis.IdempotencyTTL)

		if cfg.Redis.RatePerMinute > 0 {
			deps.Limiter = redisrepo.NewSlidingWindowLimiter(a.rdb, cfg.Redis.RatePerMinute, time.Minute)
		}

		logger.Info("redis features enabled", slog.String("addr", cfg.Redis.Addr))
	}

	fac, err := facility.New(store, allocator.New(nil), deps, a.telemetry, logger, facility.Config{
		MaxDimension: cfg.Parking.MaxDimension,
		Location:     cfg.Parking.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize facility service: %w", err)
	}

	q := query.New(store, cache, archive, query.Config{LotTTL: cfg.Redis.LotCacheTTL})

	router := httpgin.NewRouter(service.NewServices(fac, q), opts, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.httpServer.RegisterOnShutdown(func() { close(closing) })

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()

	ctx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelClose()
	a.close(ctx)

	return err
}

// close flushes telemetry and releases the database pool and the redis client.
func (a *App) close(ctx context.Context) {
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}

	if a.pgPool != nil {
		a.pgPool.Close()
	}
}
