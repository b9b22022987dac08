package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	analyticshandler "github.com/FACorreiaa/sales-analytics/internal/domain/analytics/handler"
	analyticsrepo "github.com/FACorreiaa/sales-analytics/internal/domain/analytics/repository"
	analyticsservice "github.com/FACorreiaa/sales-analytics/internal/domain/analytics/service"
	dshandler "github.com/FACorreiaa/sales-analytics/internal/domain/datasource/handler"
	dsservice "github.com/FACorreiaa/sales-analytics/internal/domain/datasource/service"
	importhandler "github.com/FACorreiaa/sales-analytics/internal/domain/import/handler"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	importrepo "github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/sales-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/sales-analytics/internal/domain/templates"
	"github.com/FACorreiaa/sales-analytics/internal/server"
	"github.com/FACorreiaa/sales-analytics/pkg/config"
	"github.com/FACorreiaa/sales-analytics/pkg/cron"
	"github.com/FACorreiaa/sales-analytics/pkg/db"
	"github.com/FACorreiaa/sales-analytics/pkg/middleware"
	"github.com/FACorreiaa/sales-analytics/pkg/notify"
	"github.com/FACorreiaa/sales-analytics/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	ImportRepo     importrepo.ImportRepository
	DataSourceRepo importrepo.DataSourceRepository
	AnalyticsRepo  analyticsrepo.Repository

	// Services
	FileStorage       storage.Storage
	ImportService     *importservice.ImportService
	DataSourceService *dsservice.Service
	AnalyticsService  *analyticsservice.Service
	Scheduler         *cron.Scheduler
	Registry          *prometheus.Registry
	RateLimiter       *middleware.RateLimiter

	// Handlers
	DataSourceHandler *dshandler.DataSourceHandler
	ImportHandler     *importhandler.ImportHandler
	AnalyticsHandler  *analyticshandler.AnalyticsHandler
	TemplatesHandler  *templates.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase connects to Postgres and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        int32(d.Config.Database.MinConns),
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(ctx); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.DataSourceRepo = importrepo.NewPostgresDataSourceRepository(d.DB.Pool)
	d.AnalyticsRepo = analyticsrepo.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() error {
	cfg := d.Config

	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		LocalPath: cfg.Storage.LocalPath,
		MaxBytes:  cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	synonyms, err := inference.LoadSynonyms(cfg.Import.SynonymsFile)
	if err != nil {
		return err
	}

	if cfg.Observability.MetricsEnabled {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.FileStorage, importservice.Config{
		BatchSize:       cfg.Import.BatchSize,
		ErrorThreshold:  importservice.Threshold(cfg.Import.ErrorThreshold),
		MaxErrorSamples: cfg.Import.MaxErrorSamples,
		DefaultCulture:  cfg.Import.DefaultCulture,
	}, d.Logger).
		WithMatcher(inference.NewMatcher(synonyms))
	if d.Registry != nil {
		d.ImportService.WithMetrics(importservice.NewMetrics(d.Registry))
	}

	// NewEmailNotifier returns nil when Resend is not configured.
	if n := notify.NewEmailNotifier(notify.Config{
		APIKey:    cfg.Notify.ResendAPIKey,
		FromEmail: cfg.Notify.FromEmail,
		To:        cfg.Notify.To,
	}, d.Logger); n != nil {
		d.ImportService.WithNotifier(n)
	}

	d.DataSourceService = dsservice.NewService(d.DataSourceRepo, d.Logger)
	d.AnalyticsService = analyticsservice.NewService(d.AnalyticsRepo, cfg.Import.DefaultCulture, d.Logger)

	d.Scheduler = cron.NewScheduler(d.ImportService, cron.SweepConfig{
		Schedule: cfg.Import.SweepSchedule,
		MinAge:   cfg.Import.SweepMinAge,
		Limit:    cfg.Import.SweepLimit,
		Workers:  cfg.Import.SweepWorkers,
	}, d.Logger)

	if cfg.Server.RateLimitPerSecond > 0 {
		d.RateLimiter = middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
	}

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.DataSourceHandler = dshandler.NewDataSourceHandler(d.DataSourceService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.DataSourceService, d.Config.Server.MaxUploadBytes, d.Logger)
	d.AnalyticsHandler = analyticshandler.NewAnalyticsHandler(d.AnalyticsService, d.DataSourceService, d.Logger)
	d.TemplatesHandler = templates.NewHandler(d.Logger)

	d.Logger.Info("handlers initialized")
}

// Server builds the HTTP server over the initialized handlers.
func (d *Dependencies) Server() *server.Server {
	opts := server.Options{
		CORSOrigins: d.Config.Server.CORSOrigins,
		RateLimiter: d.RateLimiter,
		Health:      d.DB.Health,
	}
	if d.Registry != nil {
		opts.Gatherer = d.Registry
	}
	if d.Config.Auth.JWTSecret != "" {
		opts.Verifier = middleware.NewTokenVerifier(d.Config.Auth.JWTSecret, d.Config.Auth.Issuer)
	} else {
		d.Logger.Warn("JWT_SECRET not set, every request runs as the local owner")
	}

	return server.New(server.Handlers{
		DataSources: d.DataSourceHandler,
		Imports:     d.ImportHandler,
		Analytics:   d.AnalyticsHandler,
		Templates:   d.TemplatesHandler,
	}, opts, d.Logger)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.RateLimiter != nil {
		d.RateLimiter.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
