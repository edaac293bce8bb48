package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"telinsights/internal/config"
	"telinsights/internal/constants"
	"telinsights/internal/ingest"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/pkg/bootstrap"
	"telinsights/pkg/health"
	"telinsights/pkg/logging"
	"telinsights/pkg/metrics"
	"telinsights/pkg/middleware"
	"telinsights/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	store          *messages.CircuitBreakerRepository
	service        *ingest.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	dedup, err := a.initDeduplicator(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize deduplicator: %w", err)
	}

	svc, err := ingest.NewService(a.store, dedup, a.Config.Ingest.Filters, a.Logger.Named("ingest"))
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}
	a.service = svc

	if err := a.InitBroker(constants.ServiceNameIngest); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceNameIngest)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterIngestMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterDatabaseMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	var repo messages.Repository

	if a.Config.Database.MessageStore == constants.StoreTypeMemory {
		a.Logger.Warn("Using in-memory message store, data is lost on restart")
		repo = messages.NewMemoryRepository()
	} else {
		db, err := a.dbConnector.InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("database.postgres.host is required for the %s message store", constants.StoreTypePostgres)
		}
		a.db = db
		repo = messages.NewRepository(db, constants.ServiceNameIngest)
	}

	a.store = messages.NewCircuitBreakerRepository(repo, a.Config.CircuitBreaker)
	return nil
}

func (a *App) initDeduplicator(ctx context.Context) (ingest.Deduplicator, error) {
	ttl := time.Duration(a.Config.Ingest.DedupTTLHours) * time.Hour

	client, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		a.Logger.Warn("Redis not configured, deduplicating in process only")
		return ingest.NewMemoryDeduplicator(ttl), nil
	}

	a.redis = client
	return ingest.NewRedisDeduplicator(client, ttl, a.Config.Ingest.OnRedisError, a.Logger.Named("dedup")), nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	healthRegistry.Register(health.NewCircuitBreakerChecker("message_store", a.store))

	router.GET("/health", healthRegistry.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: router,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	inputTopic := a.Config.Broker.Kafka.InputTopic
	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, constants.ServiceNameIngest)
		a.Logger.InfowCtx(consumeCtx, "Consuming enriched messages", "topic", inputTopic)
		return a.Consumer.Consume(consumeCtx, inputTopic, a.service.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, nil)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
