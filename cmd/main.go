package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/japanesestudent/learnplayer/docs"
	"github.com/japanesestudent/learnplayer/internal/auth"
	"github.com/japanesestudent/learnplayer/internal/config"
	"github.com/japanesestudent/learnplayer/internal/handlers"
	"github.com/japanesestudent/learnplayer/internal/logger"
	"github.com/japanesestudent/learnplayer/internal/metrics"
	"github.com/japanesestudent/learnplayer/internal/middleware"
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/japanesestudent/learnplayer/internal/repositories"
	"github.com/japanesestudent/learnplayer/internal/services"
	"github.com/japanesestudent/learnplayer/internal/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title LearnPlayer API
// @version 1.0
// @description API for the course catalog, enrollments and the lesson player
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting LearnPlayer service")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	courseRepo := repositories.NewCourseRepository(db, logger.Logger)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	completionRepo := repositories.NewLessonCompletionRepository(db)

	// Player sessions live in memory and are dropped after SessionTTL of inactivity
	registry := sessions.NewRegistry(cfg.Player.SessionTTL, time.Minute, logger.Logger,
		sessions.WithActiveObserver(metrics.SetActiveSessions),
	)
	defer registry.Close()

	policy := playback.CompleteOnAdvance
	if !cfg.Player.CompleteOnAdvance {
		policy = playback.RequireExplicitCompletion
	}

	// Initialize services
	catalogService := services.NewCatalogService(courseRepo, logger.Logger)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, completionRepo, courseRepo, logger.Logger)
	playerService := services.NewPlayerService(catalogService, enrollmentService, registry, services.PlayerOptions{
		Resolver: playback.NewResolver(playback.WithOrigin(cfg.Player.EmbedOrigin)),
		Policy:   policy,
		Hooks:    metrics.PlaybackHooks(),
	}, logger.Logger)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService, logger.Logger)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, logger.Logger)
	playerHandler := handlers.NewPlayerHandler(playerService, logger.Logger)

	// Initialize auth middleware
	authMiddleware := auth.AuthMiddleware(auth.NewTokenValidator(cfg.JWT.Secret))

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		catalogHandler.RegisterRoutes(r)
		enrollmentHandler.RegisterRoutes(r, authMiddleware)
		playerHandler.RegisterRoutes(r, authMiddleware)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	// Service-specific migration table so the schema can share a database with other services
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "learnplayer_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
