package main

import (
	"context"
	"database/sql"
	"log"
	"math"
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
	"go.uber.org/zap"

	"doccatalog/docs"
	"doccatalog/internal/config"
	"doccatalog/internal/database"
	"doccatalog/internal/database/migration"
	handlers "doccatalog/internal/http/handler"
	"doccatalog/internal/http/middleware"
	"doccatalog/internal/intake"
	"doccatalog/internal/logger"
	"doccatalog/internal/metrics"
	"doccatalog/internal/otel"
	"doccatalog/internal/repository/sqlite"
	"doccatalog/internal/seed"
	"doccatalog/internal/service"
	"doccatalog/internal/storage"
)

// @title Document Catalog API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize tracing", zap.Error(err))
	}

	db, err := database.NewSQLite(cfg.Store)
	if err != nil {
		zlog.Fatal("failed to open local store", zap.Error(err), zap.String("path", cfg.Store.Path))
	}
	defer db.Close()

	docRepo := sqlite.NewDocumentSQLite(db, func(ctx context.Context, db *sql.DB) error {
		return migration.Up(ctx, db, zlog)
	}, zlog)

	blobs := storage.NewSession(cfg.Blob.MaxBytes)

	var seeder service.Seeder
	if cfg.Seed.Enabled {
		samples, err := seed.LoadSamples(cfg.Seed.File)
		if err != nil {
			zlog.Fatal("failed to load seed samples", zap.Error(err), zap.String("file", cfg.Seed.File))
		}
		seeder = seed.New(docRepo, samples, zlog)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	catalogMetrics, err := metrics.NewCatalog(reg)
	if err != nil {
		zlog.Fatal("failed to register catalog metrics", zap.Error(err))
	}

	docSvc := service.NewCatalogService(docRepo, seeder, blobs, intake.NewBuilder(blobs), zlog, catalogMetrics)

	// a failure here is not fatal, every operation retries initialization
	if err := docSvc.Initialize(ctx); err != nil {
		zlog.Error("local store not ready", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit(cfg.Blob.MaxBytes),
		DisableStartupMessage: cfg.Env == "prod",
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		zlog.Fatal("failed to register http metrics", zap.Error(err))
	}

	// Register global middleware
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zlog))
	app.Use(promMiddleware.Handler())

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, docSvc, cfg.ShareBaseURL)

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Error("http shutdown failed", zap.Error(err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			zlog.Error("tracing shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server_start", zap.String("addr", cfg.Addr()), zap.String("store", cfg.Store.Path))
	if err := app.Listen(cfg.Addr()); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

// bodyLimit leaves room for the multipart envelope around the largest accepted file.
func bodyLimit(maxBlob int64) int {
	const overhead = 1 << 20
	if maxBlob <= 0 {
		return fiber.DefaultBodyLimit
	}
	if maxBlob > int64(math.MaxInt-overhead) {
		return math.MaxInt
	}
	return int(maxBlob) + overhead
}
