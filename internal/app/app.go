package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/config"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/event"
	handler "github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/handler/http"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository/memory"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository/postgres"
	redisrepo "github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository/redis"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/service"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/migrations"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/health"
	pkgkafka "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/kafka"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/middleware"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/tracing"
)

// ServiceName identifies the hub in logs, metrics, traces and events.
const ServiceName = "hub-service"

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the hub service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// stores is the ledger selected by STORAGE_DRIVER.
type stores struct {
	votes     repository.VoteStore
	reviews   repository.ReviewStore
	usernames repository.UsernameStore
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	st, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		_ = a.Shutdown()
		return nil, err
	}

	// Domain events are optional; without Kafka they are dropped.
	var publisher service.EventPublisher = event.Noop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	voteService := service.NewVoteService(st.votes, publisher, logger)
	reviewService := service.NewReviewService(st.reviews, publisher, logger)
	usernameService := service.NewUsernameService(st.usernames, publisher, logger)
	schemaService := service.NewSchemaService(logger, st.votes, st.reviews, st.usernames)

	// Prepare the ledger once at startup; a failure here is retried on the
	// first request.
	if err := schemaService.Ensure(ctx); err != nil {
		logger.Warn("ledger not ready at startup", slog.String("error", err.Error()))
	}

	hub := handler.NewHubHandler(voteService, reviewService, usernameService, schemaService, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(hub, healthHandler, handler.RouterConfig{
		ServiceName:       ServiceName,
		CORS:              corsCfg,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		RequestTimeout:    time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeoutSeconds)*time.Second + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStorage connects the configured ledger backend and registers its
// readiness check.
func (a *App) openStorage(ctx context.Context, healthHandler *health.Handler) (stores, error) {
	cfg := a.cfg

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}

		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return stores{}, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		// Run database migrations.
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		// Configure slow query logging.
		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}

		healthHandler.RegisterCritical("postgres", pool.Ping)
		return stores{
			votes:     postgres.NewVoteRepository(pool),
			reviews:   postgres.NewReviewRepository(pool),
			usernames: postgres.NewUsernameRepository(pool),
		}, nil

	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return stores{}, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		a.logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}

		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		return stores{
			votes:     redisrepo.NewVoteRepository(rdb),
			reviews:   redisrepo.NewReviewRepository(rdb),
			usernames: redisrepo.NewUsernameRepository(rdb),
		}, nil

	default:
		a.logger.Warn("using in-memory ledger; data is lost on restart")
		return stores{
			votes:     memory.NewVoteStore(),
			reviews:   memory.NewReviewStore(),
			usernames: memory.NewUsernameStore(),
		}, nil
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, then the storage clients. Components that were never
// started are skipped.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Flush spans after the HTTP drain so in-flight request spans are kept.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
