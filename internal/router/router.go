package router

import (
	"context"
	"time"

	"github.com/anonto42/follow-graph/internal/handlers"
	"github.com/anonto42/follow-graph/internal/middleware"
	"github.com/anonto42/follow-graph/internal/models"
	"github.com/anonto42/follow-graph/internal/repositories"
	"github.com/anonto42/follow-graph/internal/services"
	"github.com/anonto42/follow-graph/pkg/config"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// SetupRoutes configures all application routes and injects dependencies.
// tokenVerifier may be nil when Firebase is not configured.
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, tokenVerifier handlers.TokenVerifier) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(db.MongoDB)
	followRepo := repositories.NewMongoFollowRepository(db.MongoDB)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := followRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	log.Info("MongoDB indexes ensured for users and follows.")

	var countCache repositories.FollowCountCache
	if db.Redis != nil {
		countCache = repositories.NewRedisFollowCountCache(db.Redis, cfg.CountCacheTTL)
	}

	var notificationRepo repositories.NotificationRepository
	if db.Postgres != nil {
		if err := db.Postgres.AutoMigrate(&models.Notification{}); err != nil {
			return err
		}
		log.Info("PostgreSQL auto-migrations completed for notifications.")
		notificationRepo = repositories.NewPostgresNotificationRepository(db.Postgres)
	}

	followService := services.NewFollowService(userRepo, followRepo, countCache)

	e.GET("/health", handlers.HealthCheck(db.Mongo))

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, tokenVerifier, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	followHandler := handlers.NewFollowHandler(followService, userRepo, notificationRepo)
	followHandler.RegisterFollowRoutes(api)
	log.Info("Follow routes configured.")

	profileHandler := handlers.NewProfileHandler(userRepo, followService)
	profileHandler.RegisterProfileRoutes(api)
	log.Info("Profile routes configured.")

	if notificationRepo != nil {
		notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
		notificationHandler.RegisterNotificationRoutes(api)
		log.Info("Notification routes configured.")
	}

	return nil
}
