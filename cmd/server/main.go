package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared/valueobject"
	"github.com/erp/quoting/internal/infrastructure/cache"
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/erp/quoting/internal/infrastructure/event"
	"github.com/erp/quoting/internal/infrastructure/integration"
	"github.com/erp/quoting/internal/infrastructure/logger"
	"github.com/erp/quoting/internal/infrastructure/migration"
	"github.com/erp/quoting/internal/infrastructure/notification"
	"github.com/erp/quoting/internal/infrastructure/persistence"
	"github.com/erp/quoting/internal/infrastructure/printing"
	"github.com/erp/quoting/internal/infrastructure/storage"
	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/erp/quoting/internal/interfaces/http/handler"
	"github.com/erp/quoting/internal/interfaces/http/middleware"
	"github.com/erp/quoting/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Quoting API
//	@version		1.0
//	@description	Quote-to-contract lifecycle: drafting, pricing, tax, sending and execution of quotes

//	@BasePath	/api/v1

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.ExportLogs,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		ServerAddress:   cfg.Telemetry.ProfilingAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting quoting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), 200*time.Millisecond)
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.TraceSQL,
		DBSystem: "postgresql",
	}, log)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog, dbTracing)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrateSchema(db, log); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	leadRepo := persistence.NewGormLeadRepository(db.DB)
	catalogProvider := persistence.NewGormCatalogProvider(db.DB)
	activities := persistence.NewGormActivityRecorder(db.DB)
	taxLocations := persistence.NewGormTaxLocationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Tax rate cache
	rateStore, err := cache.NewRateStore(cfg.Redis, cfg.App.Env != "production", log)
	if err != nil {
		log.Fatal("Failed to initialize tax rate cache", zap.Error(err))
	}
	defer func() {
		_ = rateStore.Close()
	}()
	rates := cache.NewCachedTaxRateTable(taxLocations, rateStore, cfg.Quoting.TaxRateCacheTTL, log)

	// Idempotency keys for execute and co-term
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, cfg.App.Env != "production", log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Signature storage
	var fileStorage appquoting.FileStorage
	switch cfg.Storage.Type {
	case "s3":
		s3Storage, err := storage.NewS3FileStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize signature storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare signature bucket", zap.Error(err))
		}
		fileStorage = s3Storage
	default:
		log.Warn("Using in-memory signature storage; signatures are lost on restart")
		fileStorage = storage.NewMemoryFileStorage()
	}

	// Documents, notifications and the finance system
	renderer, err := printing.NewDocumentRenderer(cfg.Render, log)
	if err != nil {
		log.Fatal("Failed to initialize document renderer", zap.Error(err))
	}
	defer func() {
		_ = renderer.Close()
	}()
	notifier, closeNotifier := notification.New(cfg.Notification, cfg.Redis, log)
	defer func() {
		_ = closeNotifier()
	}()
	finance := integration.NewFinanceIntegration(cfg.Quoting, log)

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	audit := event.NewAuditLogHandler(log)
	eventBus.Subscribe(audit, audit.Subscribes()...)

	// Application services
	opts := appquoting.Options{
		Settings: quoting.Settings{
			ShowDiscount: cfg.Quoting.ShowDiscount,
			Currency:     valueobject.Currency(cfg.Quoting.Currency),
		},
		IntegrationTimeout: cfg.Quoting.IntegrationTimeout,
		RenderTimeout:      cfg.Quoting.RenderTimeout,
		NotifyTimeout:      cfg.Quoting.NotifyTimeout,
		DefaultNetTerms:    cfg.Quoting.DefaultNetTerms,
		DefaultTerm:        cfg.Quoting.DefaultTerm,
		Now:                time.Now,
	}

	quoteService := appquoting.NewQuoteService(txScope, quoteRepo, accountRepo, leadRepo, catalogProvider, finance, opts, log)
	quoteService.SetEventPublisher(eventBus)
	ledgerService := appquoting.NewLedgerService(txScope, catalogProvider, opts, log)
	lifecycleService := appquoting.NewLifecycleService(txScope, quoteRepo, accountRepo, leadRepo, catalogProvider,
		fileStorage, renderer, notifier, activities, opts, log)
	lifecycleService.SetEventPublisher(eventBus)
	cotermOrchestrator := appquoting.NewCotermOrchestrator(txScope, accountRepo, catalogProvider,
		renderer, notifier, activities, opts, log)
	cotermOrchestrator.SetEventPublisher(eventBus)
	taxResolver := appquoting.NewTaxResolver(txScope, accountRepo, leadRepo, catalogProvider,
		finance, rates, activities, opts, log)

	quoteMetrics, err := telemetry.NewQuoteMetrics(meterProvider.Meter("quoting"), log)
	if err != nil {
		log.Fatal("Failed to register quote metrics", zap.Error(err))
	}

	// HTTP
	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.HTTP.HSTS
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Mode:           mode,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		CORS:           &cors,
		Security:       &security,
		Tracing:        tracerProvider.IsEnabled(),
		Meter:          meterProvider.Meter("http"),
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log

	quoteHandler := handler.NewQuoteHandler(handler.QuoteServices{
		Quotes:    quoteService,
		Ledger:    ledgerService,
		Lifecycle: lifecycleService,
		Coterm:    cotermOrchestrator,
		Tax:       taxResolver,
	}, quoteMetrics).WithIdempotency(middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  idempotencyStore,
		TTL:    cfg.Quoting.IdempotencyTTL,
		Logger: log,
	}))
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.DB.WithContext(ctx).Exec("SELECT 1").Error },
	})

	router.NewRouter(engine, router.WithTenant(tenantCfg)).
		Register(quoteHandler).
		RegisterRoot(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	return m.Up()
}
