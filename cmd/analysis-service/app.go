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

	"telinsights/internal/alertconfig"
	"telinsights/internal/alerting"
	"telinsights/internal/config"
	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/messages"
	"telinsights/internal/summary"
	"telinsights/internal/tools"
	"telinsights/internal/trends"
	"telinsights/pkg/bootstrap"
	"telinsights/pkg/health"
	"telinsights/pkg/metrics"
	"telinsights/pkg/middleware"
	"telinsights/pkg/ratelimit"
	"telinsights/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	store          *messages.CircuitBreakerRepository
	configs        alertconfig.Repository
	analyzer       *alerting.Analyzer
	publisher      *alerting.Publisher
	scheduler      *alerting.Scheduler
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
	if err := a.initStores(ctx); err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}

	cooldown, err := a.initCooldown(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize cooldown tracker: %w", err)
	}

	if err := a.InitProducer(constants.ServiceNameAnalysis); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceNameAnalysis)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	alertCfg := a.Config.Alerting
	a.analyzer = alerting.NewAnalyzer(a.configs, a.store, cooldown, a.Logger.Named("analyzer"),
		alerting.WithDefaults(alertCfg.DefaultThreshold, alertCfg.DefaultWindowMinutes),
	)
	a.publisher = alerting.NewPublisher(a.Producer, alertCfg.DeliveryTopic, constants.ServiceNameAnalysis, a.Logger.Named("publisher"))
	if alertCfg.SchedulerEnabled {
		a.scheduler = alerting.NewScheduler(a.analyzer, a.publisher, alertCfg.CheckInterval(), alertCfg.ErrorBackoff(), a.Logger.Named("scheduler"))
	}

	metrics.RegisterAnalysisMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterDatabaseMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer(ctx)
	return nil
}

func (a *App) initStores(ctx context.Context) error {
	var msgRepo messages.Repository

	switch a.Config.Database.MessageStore {
	case constants.StoreTypeMemory:
		a.Logger.Warn("Using in-memory stores, data is lost on restart")
		msgRepo = messages.NewMemoryRepository()
		a.configs = alertconfig.NewMemoryRepository()
	default:
		db, err := a.dbConnector.InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("database.postgres.host is required for the %s message store", constants.StoreTypePostgres)
		}
		a.db = db
		msgRepo = messages.NewRepository(db, constants.ServiceNameAnalysis)
		a.configs = alertconfig.NewRepository(db, constants.ServiceNameAnalysis)
	}

	a.store = messages.NewCircuitBreakerRepository(msgRepo, a.Config.CircuitBreaker)
	return nil
}

func (a *App) initCooldown(ctx context.Context) (alerting.CooldownTracker, error) {
	cooldown := a.Config.Alerting.Cooldown()

	if a.Config.Alerting.CooldownBackend != constants.CooldownBackendRedis {
		return alerting.NewMemoryCooldownTracker(cooldown), nil
	}

	client, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("database.redis.host is required for the redis cooldown backend")
	}
	a.redis = client
	return alerting.NewRedisCooldownTracker(client, cooldown), nil
}

func (a *App) initHTTPServer(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceNameAnalysis))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

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

	api := router.Group("")
	if rl := a.Config.Tools.RateLimit; rl.Enabled {
		limits := ratelimit.FromSettings(rl)
		api.Use(ratelimit.RateLimitMiddleware(ctx, limits))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", limits.RPS, "burst", limits.Burst)
	}

	handler := tools.NewHandler(
		summary.NewAggregator(a.store, a.Logger.Named("summary")),
		trends.NewAnalyzer(a.store, a.Logger.Named("trends")),
		a.analyzer,
		a.publisher,
		a.Logger.Named("tools"),
	)
	handler.RegisterRoutes(api)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
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

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(gCtx)
		})
	} else {
		a.Logger.InfowCtx(ctx, "Alert scheduler disabled, checks run only on request")
	}

	return g.Wait()
}

// CheckOnce runs a single check, delivers what triggered and returns the
// number of alerts.
func (a *App) CheckOnce(ctx context.Context, force bool) (int, error) {
	check := a.analyzer.CheckFrequencyAlerts
	if force {
		check = a.analyzer.ForceCheck
	}

	alerts, err := check(ctx)
	if err != nil {
		return 0, fmt.Errorf("alert check failed: %w", err)
	}
	if err := a.publisher.Deliver(ctx, alerts); err != nil {
		return len(alerts), fmt.Errorf("alert delivery incomplete: %w", err)
	}
	return len(alerts), nil
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
