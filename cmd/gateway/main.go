package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"npmdeck/internal/config"
	"npmdeck/internal/database"
	"npmdeck/internal/database/migration"
	handlers "npmdeck/internal/http/handler"
	"npmdeck/internal/http/middleware"
	"npmdeck/internal/monitor"
	"npmdeck/internal/otel"
	"npmdeck/internal/repository/postgres"
	"npmdeck/internal/service"
	"npmdeck/internal/storage"
	"npmdeck/internal/upstream"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	registry := prometheus.NewRegistry()

	mon, err := monitor.New(registry)
	if err != nil {
		log.Fatalf("failed to initialize monitor: %v", err)
	}

	up, err := upstream.NewClient(cfg.Upstream, cfg.Retry, upstream.WithOnRetry(mon.RecordRetry))
	if err != nil {
		log.Fatalf("failed to initialize upstream client: %v", err)
	}

	// The audit store and the certificate archive are both optional.
	var db *sql.DB
	var auditSvc service.AuditService
	if cfg.AuditDB {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to audit database: %v", err)
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate audit database: %v", err)
		}
		auditSvc = service.NewAuditService(postgres.NewAuditPostgres(db))
	}

	var archiveSvc service.CertArchiveService
	if cfg.Archive.Enabled {
		objStore, err := storage.NewMinIO(cfg.Archive)
		if err != nil {
			log.Fatalf("failed to initialize certificate archive storage: %v", err)
		}
		archiveSvc = service.NewCertArchiveService(objStore)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    16 * 1024 * 1024, // certificate uploads stay well under this
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(middleware.Security(cfg.CORS))
	app.Use(otelfiber.Middleware())

	prom, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to initialize prometheus middleware: %v", err)
	}
	app.Use(prom.Handler())

	handlers.RegisterRoutes(app, handlers.RouterDeps{
		Cfg:        cfg,
		Mon:        mon,
		Upstream:   up,
		Registry:   registry,
		AuditDB:    db,
		AuditSvc:   auditSvc,
		ArchiveSvc: archiveSvc,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Printf("failed to flush traces: %v", err)
	}
}
