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

	_ "github.com/bloghut/backend/docs"
	"github.com/bloghut/backend/internal/handlers"
	"github.com/bloghut/backend/internal/middleware"
	"github.com/bloghut/backend/internal/repositories"
	"github.com/bloghut/backend/internal/services"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/storage"
	"github.com/bloghut/backend/internal/tasks"
	"github.com/bloghut/backend/internal/views"
	"github.com/bloghut/backend/libs/auth/service"
	"github.com/bloghut/backend/libs/config"
	"github.com/bloghut/backend/libs/logger"
	loggerMiddleware "github.com/bloghut/backend/libs/logger/middleware"
	sharedMiddleware "github.com/bloghut/backend/libs/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Blog Hut API
// @version 1.0
// @description AJAX endpoints of the Blog Hut blogging platform: comments and reactions.
// @description Every request must carry "X-Requested-With: XMLHttpRequest"; mutating requests also need the session CSRF token.

// @license.name MIT

// @host localhost:8080
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Blog Hut")

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

	// Connect to Redis (sessions)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Email queue; enqueue failures are logged by the services and never block a request
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		logger.Logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	postRepo := repositories.NewPostRepository(db, logger.Logger)
	categoryRepo := repositories.NewCategoryRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	reactionRepo := repositories.NewReactionRepository(db)
	badgeRepo := repositories.NewBadgeRepository(db)
	rememberTokenRepo := repositories.NewRememberTokenRepository(db)
	passwordResetRepo := repositories.NewPasswordResetRepository(db)
	transactor := repositories.NewTransactor(db)

	// Initialize services
	mediaService := services.NewMediaService(storage.NewLocalStorage(cfg.Upload.Dir), cfg.Upload.MaxSize, logger.Logger)
	badgeService := services.NewBadgeService(badgeRepo, logger.Logger)
	categoryService := services.NewCategoryService(categoryRepo, logger.Logger)
	postService := services.NewPostService(postRepo, commentRepo, reactionRepo, categoryRepo, badgeService, mediaService, transactor, logger.Logger)
	commentService := services.NewCommentService(commentRepo, postService, logger.Logger, cfg.Comments.MinLength, cfg.Comments.MaxLength)
	reactionService := services.NewReactionService(reactionRepo, postService, logger.Logger)
	profileService := services.NewProfileService(userRepo, badgeService, postService, mediaService, transactor, logger.Logger)
	adminService := services.NewAdminService(userRepo, postRepo, postService, commentService, categoryService, mediaService, logger.Logger)
	authService := services.NewAuthService(
		userRepo,
		rememberTokenRepo,
		passwordResetRepo,
		badgeService,
		transactor,
		tasks.NewEmailQueue(asynqClient, logger.Logger),
		logger.Logger,
		cfg.Session.RememberTTL,
		cfg.BaseURL,
	)

	// Sessions live in Redis behind a signed cookie
	sessions := session.NewManager(
		session.NewRedisStore(rdb),
		service.NewSessionTokenGenerator(cfg.Session.Secret, cfg.Session.TTL),
		cfg.Session.CookieSecure,
		logger.Logger,
	)

	renderer, err := views.New(logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	// Initialize handlers
	postHandler := handlers.NewPostHandler(postService, categoryService, handlers.CommentLimits{
		Min: cfg.Comments.MinLength,
		Max: cfg.Comments.MaxLength,
	}, renderer, logger.Logger)
	authHandler := handlers.NewAuthHandler(authService, sessions, renderer, logger.Logger)
	profileHandler := handlers.NewProfileHandler(profileService, sessions, renderer, logger.Logger)
	adminHandler := handlers.NewAdminHandler(adminService, renderer, logger.Logger)
	apiHandler := handlers.NewAPIHandler(commentService, reactionService, logger.Logger)
	mediaHandler := handlers.NewMediaHandler(storage.NewLocalStorage(cfg.Upload.Dir), logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))

	// Static assets and uploads need no session
	r.Handle("/static/*", http.StripPrefix("/static", views.StaticHandler()))
	mediaHandler.RegisterRoutes(r)

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("%s/swagger/doc.json", cfg.BaseURL)),
	))

	r.Group(func(r chi.Router) {
		// the limit leaves room for the form fields around an image
		r.Use(sharedMiddleware.RequestSizeLimitMiddleware(cfg.Upload.MaxSize + 1<<20))
		r.Use(sessions.Middleware)
		r.Use(middleware.CurrentUserMiddleware(authService, sessions, logger.Logger))
		r.Use(middleware.RememberMeMiddleware(authService, sessions, logger.Logger))
		r.Use(middleware.CSRFMiddleware(logger.Logger))

		postHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r)
		profileHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
		apiHandler.RegisterRoutes(r)

		r.NotFound(postHandler.NotFound)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
