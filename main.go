// Package main provides the main entry point for the FAST ads decision service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/fast-ads/app/handlers"
	"github.com/amirphl/fast-ads/app/middleware"
	"github.com/amirphl/fast-ads/app/router"
	"github.com/amirphl/fast-ads/app/scheduler"
	"github.com/amirphl/fast-ads/app/services"
	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/cache"
	"github.com/amirphl/fast-ads/config"
	_ "github.com/amirphl/fast-ads/docs"
	"github.com/amirphl/fast-ads/logger"
	"github.com/amirphl/fast-ads/observability"
	"github.com/amirphl/fast-ads/repository"
	"github.com/amirphl/fast-ads/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title FAST Ads API
// @version 1.0
// @description Ad decisioning, VAST/VMAP ad tags and tracking for FAST channels
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	server    *fiber.App
	log       *logger.Logger
	decisions *businessflow.AdDecisionFlowImpl
	store     cache.Store
	stopFuncs []func()
	shutdowns []func(context.Context) error
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("Starting FAST ads service",
		"version", cfg.Deployment.Version,
		"environment", cfg.Deployment.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApplication(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialize application", "error", err.Error())
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	select {
	case sig := <-sigChan:
		appLog.Info("Shutting down gracefully", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			appLog.Error("Server stopped unexpectedly", "error", err.Error())
		}
	}

	app.shutdown(cfg.Server.ShutdownTimeout)
	appLog.Info("Server stopped")
}

// shutdown stops accepting requests, waits for in-flight decision side effects
// and then releases background workers and connections
func (a *Application) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.ShutdownWithContext(ctx); err != nil {
		a.log.Error("Error during server shutdown", "error", err.Error())
	}

	if err := a.decisions.Drain(ctx); err != nil {
		a.log.Warn("Pending decision writes did not finish", "error", err.Error())
	}

	for _, stop := range a.stopFuncs {
		stop()
	}

	for _, fn := range a.shutdowns {
		if err := fn(ctx); err != nil {
			a.log.Warn("Shutdown hook failed", "error", err.Error())
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close cache", "error", err.Error())
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, appLog *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(log.New(os.Stdout, "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	appLog.Info("Database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns)

	return db, nil
}

// initializeCache returns the shared cache store. Without redis the process keeps an in-memory store,
// so decisions and frequency caps are only consistent within one instance.
func initializeCache(cfg config.CacheConfig, appLog *logger.Logger) (cache.Store, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		appLog.Warn("Using in-memory cache store", "cleanup_interval", cfg.CleanupInterval.String())
		return cache.NewMemoryStore(cfg.CleanupInterval), nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	appLog.Info("Redis connection established", "addr", opt.Addr, "db", cfg.RedisDB)
	return cache.NewRedisStore(rc, cfg.RedisPrefix), nil
}

// startCacheHealthMonitor periodically pings the cache store to surface connectivity issues.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, store cache.Store, interval time.Duration, appLog *logger.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := store.Ping(ctx); err != nil {
					appLog.Warn("Cache healthcheck failed", "error", err.Error())
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, appLog *logger.Logger) (*Application, error) {
	app := &Application{log: appLog}

	app.shutdowns = append(app.shutdowns, observability.InitOTel(ctx, appLog, observability.OtelConfig{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Deployment.Environment,
		Version:     cfg.Deployment.Version,
	}))

	db, err := initializeDatabase(cfg.Database, appLog)
	if err != nil {
		return nil, err
	}

	store, err := initializeCache(cfg.Cache, appLog)
	if err != nil {
		return nil, err
	}
	app.store = store
	if cfg.Cache.Enabled && cfg.Cache.Provider == "redis" {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(ctx, store, cfg.Cache.CleanupInterval, appLog))
	}

	decisionLocation, err := utils.LoadLocation(cfg.Decision.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("decision time zone: %w", err)
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	adBreakRepo := repository.NewAdBreakRepository(db)
	adRepo := repository.NewAdRepository(db)
	variantRepo := repository.NewAdVariantRepository(db)
	podConfigRepo := repository.NewAdPodConfigRepository(db)
	assignmentRepo := repository.NewAbTestAssignmentRepository(db)
	capRepo := repository.NewFrequencyCapRepository(db)
	eventRepo := repository.NewTrackingEventRepository(db)
	decisionLogRepo := repository.NewAdDecisionLogRepository(db)
	reportRepo := repository.NewAdReportRepository(db)

	beacons := services.NewBeaconTokenService(cfg.Beacon.SigningKey, cfg.Beacon.TokenTTL)
	if !beacons.Enabled() {
		appLog.Warn("Beacon signing disabled; tracking pixels are accepted unsigned")
	}

	// Initialize flows
	eligibility := businessflow.NewEligibilityResolver(adRepo, decisionLocation, appLog)
	frequencyCaps := businessflow.NewFrequencyCapFlow(capRepo, store, cfg.Decision, cfg.Breaker, decisionLocation, appLog)
	abTests := businessflow.NewAbTestFlow(assignmentRepo, variantRepo, cfg.Decision, cfg.Breaker, appLog)

	decisionFlow := businessflow.NewAdDecisionFlow(
		channelRepo,
		podConfigRepo,
		decisionLogRepo,
		eligibility,
		frequencyCaps,
		abTests,
		store,
		beacons,
		cfg.Decision,
		appLog,
	)
	app.decisions = decisionFlow

	adTagFlow := businessflow.NewAdTagFlow(channelRepo, adBreakRepo, decisionFlow, cfg.Decision, appLog)
	trackingFlow := businessflow.NewTrackingFlow(adRepo, variantRepo, eventRepo, frequencyCaps, beacons, cfg.Beacon, appLog)
	tenantFlow := businessflow.NewTenantFlow(tenantRepo, channelRepo, store, appLog)

	if cfg.Reports.Enabled {
		reportLocation, err := utils.LoadLocation(cfg.Reports.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("reports time zone: %w", err)
		}
		reportFlow := businessflow.NewReportFlow(eventRepo, reportRepo, reportLocation, appLog)
		reportScheduler := scheduler.NewReportScheduler(reportFlow, cfg.Reports, reportLocation, appLog)
		app.stopFuncs = append(app.stopFuncs, reportScheduler.Start(ctx))
		appLog.Info("Report scheduler started", "run_hour", cfg.Reports.RunHour, "time_zone", cfg.Reports.TimeZone)
	}

	// Initialize handlers
	h := router.Handlers{
		Decision: handlers.NewAdDecisionHandler(decisionFlow, appLog),
		AdTag:    handlers.NewAdTagHandler(adTagFlow, appLog),
		Tracking: handlers.NewTrackingHandler(trackingFlow, appLog),
		Channel:  handlers.NewChannelHandler(tenantFlow, appLog),
	}

	authMiddleware := middleware.NewAuthMiddleware(tenantFlow, cfg.Security, appLog)

	healthChecks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"cache": store.Ping,
	}

	app.router = router.NewFiberRouter(cfg, appLog, h, authMiddleware, healthChecks)
	app.server = app.router.GetApp()

	app.shutdowns = append(app.shutdowns, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	return app, nil
}
