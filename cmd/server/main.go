package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kosarica/intake-service/config"
	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/handlers"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/middleware"
	"github.com/kosarica/intake-service/internal/pipeline"
	"github.com/kosarica/intake-service/internal/storage"
	"github.com/kosarica/intake-service/internal/telemetry"
)

const limiterCleanupInterval = time.Minute

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting intake service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise telemetry")
	}

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}
	if err := database.Connect(ctx, dbURL, cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, database.Pool()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply schema")
		}
		logger.Info().Msg("Schema applied")
	}

	archive, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise upload storage")
	}

	store := database.NewStore(database.Pool())
	intake := pipeline.New(docx.NewReader(readerOptions(cfg.Upload)), store, archive, logger)
	api := handlers.New(store, intake, handlers.Options{
		MaxUploadBytes: cfg.Upload.MaxUploadBytes,
		Archive:        archive,
		Ping:           database.Status,
	})

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx, limiterCleanupInterval)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.Register(router, middleware.RateLimit(limiter))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("storage", cfg.Storage.Type).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Failed to flush telemetry")
	}

	logger.Info().Msg("Server exited")
}

// readerOptions applies the configured limits over the reader defaults
func readerOptions(cfg config.UploadConfig) docx.Options {
	opts := docx.DefaultOptions()
	if cfg.MaxPartBytes > 0 {
		opts.MaxPartSize = cfg.MaxPartBytes
	}
	if cfg.MaxTotalBytes > 0 {
		opts.MaxTotalSize = cfg.MaxTotalBytes
	}
	opts.IncludeAuxiliaryParts = cfg.IncludeAuxiliaryParts
	return opts
}

func initLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Str("service", "intake-service").Logger()
}
