package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/notification-builder/internal/config"
	"github.com/ehr/notification-builder/internal/domain/excerpt"
	"github.com/ehr/notification-builder/internal/platform/auth"
	"github.com/ehr/notification-builder/internal/platform/db"
	"github.com/ehr/notification-builder/internal/platform/middleware"
	"github.com/ehr/notification-builder/internal/platform/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the notification builder API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(level)
	}
	return logger
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	var pool *pgxpool.Pool
	if cfg.ArchiveEnabled() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("connect to archive database: %w", err)
		}
		defer pool.Close()

		applied, err := db.EnsureSchema(ctx, pool, cfg.DBSchema)
		if err != nil {
			return fmt.Errorf("prepare archive schema: %w", err)
		}
		logger.Info().Str("schema", cfg.DBSchema).Int("migrations_applied", applied).Msg("archive database ready")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, excerpt archive disabled")
	}

	e, err := newServer(cfg, logger, pool)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the HTTP surface. pool may be nil, which disables the
// archive routes' backing store.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (*echo.Echo, error) {
	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceVersion: version,
		Environment:    cfg.Env,
	})

	engine := excerpt.NewEngine(
		excerpt.WithBaseURL(cfg.FHIRBaseURL),
		excerpt.WithLogger(logger),
		excerpt.WithObserver(tp),
	)

	var archive excerpt.ArchiveRepository
	if pool != nil {
		cached, err := excerpt.NewCachedArchive(excerpt.NewArchiveRepoPG(pool), cfg.ArchiveCacheSize)
		if err != nil {
			return nil, fmt.Errorf("archive cache: %w", err)
		}
		archive = cached
	}

	svc := excerpt.NewService(engine, archive)
	svc.SetMetrics(tp)
	svc.SetLogger(logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(tp.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-Transformation-Strategy"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.AuthEnabled() {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	} else {
		logger.Warn().Msg("authentication disabled in development")
		e.Use(auth.DevAuthMiddleware())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, tp.HealthMetrics()))
	e.GET("/metrics", tp.PrometheusHandler())

	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")
	if pool != nil {
		apiV1.Use(db.ConnMiddleware(pool, cfg.DBSchema))
		fhirGroup.Use(db.ConnMiddleware(pool, cfg.DBSchema))
	}

	excerpt.NewHandler(svc).RegisterRoutes(apiV1, fhirGroup)
	return e, nil
}
