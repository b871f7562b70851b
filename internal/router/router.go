package router

import (
	"context"
	"log"
	"log/slog"

	"github.com/anonto42/freelink/backend/internal/bootstrap"
	"github.com/anonto42/freelink/backend/internal/handlers"
	"github.com/anonto42/freelink/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, c *bootstrap.Container, auth echo.MiddlewareFunc) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Unprotected token exchange, for Firebase clients of a JWT deployment ---
	if c.Firebase != nil && c.Config.AuthMode == config.AuthJWT {
		authGroup := e.Group("/api/v1/auth")
		handlers.NewAuthHandler(c.Firebase.AuthClient, c.Config.JWTSecret).RegisterAuthRoutes(authGroup)
		log.Println("Auth routes configured.")
	}

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(auth)
	log.Println("Authentication middleware applied to /api/v1 group.")

	handlers.NewUserHandler(c.UserService).RegisterUserRoutes(api)
	handlers.NewBlockHandler(c.Blocks).RegisterBlockRoutes(api)
	log.Println("User routes configured.")

	handlers.NewJobHandler(c.JobService).RegisterJobRoutes(api)
	handlers.NewRelationshipHandler(c.UserService, c.Blocks, c.Projection).RegisterRelationshipRoutes(api)
	log.Println("Job routes configured.")

	handlers.NewMessageHandler(c.MessageService).RegisterMessageRoutes(api)
	handlers.NewNotificationHandler(c.Notifier).RegisterNotificationRoutes(api)
	log.Println("Messaging and notification routes configured.")

	handlers.NewLedgerHandler(c.LedgerService).RegisterLedgerRoutes(api)
	log.Println("Ledger routes configured.")
}
