package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookbuddy/docs"
	"bookbuddy/internal/config"
	"bookbuddy/internal/database"
	"bookbuddy/internal/database/migration"
	"bookbuddy/internal/delivery"
	"bookbuddy/internal/fetch"
	handlers "bookbuddy/internal/http/handler"
	"bookbuddy/internal/http/middleware"
	"bookbuddy/internal/logging"
	"bookbuddy/internal/otel"
	"bookbuddy/internal/repository/postgres"
	"bookbuddy/internal/service"
	"bookbuddy/internal/session"
	"bookbuddy/internal/storage"
	"bookbuddy/internal/webhook"
)

// maxBodySize admits uploaded audio files.
const maxBodySize = 64 << 20

// @title Book Buddy API
// @version 1.0
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.Location(), slog.LevelInfo)

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error(ctx, "tracing_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, database.WithLogger(log.With("component", "database")))
	if err != nil {
		log.Error(ctx, "database_connect_failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Error(ctx, "migration_failed", "error", err.Error())
		os.Exit(1)
	}

	// Rendered books are archived in S3-compatible object storage (MinIO-supported)
	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Error(ctx, "storage_init_failed", "error", err.Error())
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deliveryMetrics, err := delivery.NewMetrics(reg)
	if err != nil {
		log.Error(ctx, "metrics_init_failed", "error", err.Error())
		os.Exit(1)
	}
	sessionMetrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Error(ctx, "metrics_init_failed", "error", err.Error())
		os.Exit(1)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Error(ctx, "metrics_init_failed", "error", err.Error())
		os.Exit(1)
	}

	// Repositories, clients and services
	renditionRepo := postgres.NewRenditionPostgres(db)
	deliveryRepo := postgres.NewDeliveryPostgres(db)

	client := webhook.NewClient(
		webhook.WithTimeout(cfg.Webhook.Timeout()),
		webhook.WithUserAgent(cfg.Webhook.UserAgent),
	)
	fetcher := fetch.NewFetcher(
		fetch.WithTimeout(cfg.Webhook.FetchTimeout()),
		fetch.WithUserAgent(cfg.Webhook.UserAgent),
	)
	orch := delivery.NewOrchestrator(client, cfg.Webhook.Timeout(),
		delivery.WithStore(deliveryRepo),
		delivery.WithMetrics(deliveryMetrics),
		delivery.WithLogger(log.With("component", "delivery")),
	)

	sessions := session.NewManager(session.DefaultSettings(cfg.Webhook.DefaultURL, cfg.Webhook.TimeoutSec),
		session.WithIdleTTL(cfg.Session.IdleTTL()),
		session.WithMaxSessions(cfg.Session.MaxSessions),
		session.WithLogger(log.With("component", "sessions")),
	)
	go sessions.Run(ctx, time.Minute)
	rendSvc := service.NewRenditionService(objStore, renditionRepo, time.Duration(cfg.RenditionURLExpirySec)*time.Second)
	sessSvc := service.NewSessionService(sessions, orch, fetcher, rendSvc,
		service.WithDeliveryLog(deliveryRepo),
		service.WithMetrics(sessionMetrics),
		service.WithLogger(log.With("component", "session")),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    maxBodySize,
	})

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Handler())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log.With("component", "http")))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, objStore, sessSvc, rendSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info(context.Background(), "server_shutting_down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error(context.Background(), "server_shutdown_failed", "error", err.Error())
		}
	}()

	addr := ":" + cfg.Port
	log.Info(ctx, "server_starting", "addr", addr, "sessions", sessions.Len())
	if err := app.Listen(addr); err != nil {
		log.Error(ctx, "server_failed", "error", err.Error())
		os.Exit(1)
	}
}
