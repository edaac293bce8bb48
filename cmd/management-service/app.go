package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"telinsights/internal/alertconfig"
	"telinsights/internal/broker"
	"telinsights/internal/config"
	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/management"
	"telinsights/pkg/bootstrap"
	"telinsights/pkg/health"
	"telinsights/pkg/metrics"
	"telinsights/pkg/middleware"
	"telinsights/pkg/migrations"
	"telinsights/pkg/ratelimit"
	"telinsights/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	mongoClient    *mongo.Client
	repo           alertconfig.Repository
	audit          management.AuditLogger
	producer       broker.Producer
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.initAudit(ctx)

	if err := a.initEvents(); err != nil {
		return fmt.Errorf("failed to initialize change events: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, constants.ServiceNameManagement)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	a.initRouter(ctx)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	if a.config.Database.MessageStore == constants.StoreTypeMemory {
		a.logger.Warn("Using in-memory alert configuration store, data is lost on restart")
		a.repo = alertconfig.NewMemoryRepository()
		return nil
	}

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("database.postgres.host is required for the %s store", constants.StoreTypePostgres)
	}
	a.db = db
	a.repo = alertconfig.NewRepository(db, constants.ServiceNameManagement)
	return nil
}

// initAudit connects the Mongo audit log. Without Mongo, changes are kept in
// process so the audit endpoint still answers.
func (a *App) initAudit(ctx context.Context) {
	if !a.config.Management.AuditEnabled {
		return
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
	if err != nil {
		a.logger.WarnwCtx(initCtx, "MongoDB connection failed, audit kept in memory", "error", err)
	}
	if mongoClient == nil {
		a.audit = management.NewMemoryAuditLogger()
		return
	}

	a.mongoClient = mongoClient
	mongoDB := a.dbConnector.MongoDatabase(mongoClient)
	if err := migrations.EnsureAuditIndexes(initCtx, mongoDB); err != nil {
		a.logger.WarnwCtx(initCtx, "Failed to ensure audit indexes", "error", err)
	}
	a.audit = management.NewMongoAuditLogger(mongoDB)
}

// initEvents creates the producer for configuration change events when a
// topic is configured.
func (a *App) initEvents() error {
	if a.config.Management.EventsTopic == "" {
		return nil
	}

	producer, err := broker.NewProducer(a.config.Broker, constants.ServiceNameManagement, a.logger)
	if errors.Is(err, broker.ErrBrokerDisabled) {
		a.logger.Warnw("Broker disabled, configuration change events are not published",
			"topic", a.config.Management.EventsTopic)
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RegisterBrokerMetrics()
	a.producer = producer
	return nil
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceNameManagement))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ActorMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))

	metrics.RegisterManagementMetrics()
	metrics.RegisterDatabaseMetrics()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", healthRegistry.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("")
	if rl := a.config.Management.RateLimit; rl.Enabled {
		limits := ratelimit.FromSettings(rl)
		api.Use(ratelimit.RateLimitMiddleware(ctx, limits))
		a.logger.InfowCtx(ctx, "Rate limiting enabled", "rps", limits.RPS, "burst", limits.Burst)
	}

	var opts []management.ServiceOption
	if a.audit != nil {
		opts = append(opts, management.WithAudit(a.audit))
	}
	if a.producer != nil {
		notifier := management.NewChangeNotifier(a.producer, a.config.Management.EventsTopic, constants.ServiceNameManagement)
		opts = append(opts, management.WithNotifier(notifier))
	}
	svc := management.NewService(a.repo, a.logger.Named("management"), opts...)
	management.NewHandler(svc, a.logger).RegisterRoutes(api)

	a.router = router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	errs = append(errs, a.dbConnector.ShutdownDatabases(shutdownCtx, nil, a.db, a.mongoClient)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
