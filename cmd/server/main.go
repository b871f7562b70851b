package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/freelink/backend/internal/bootstrap"
	"github.com/anonto42/freelink/backend/internal/middleware"
	"github.com/anonto42/freelink/backend/internal/router"
	"github.com/anonto42/freelink/backend/pkg/config"
	"github.com/anonto42/freelink/backend/validators"
	"github.com/labstack/echo/v4"
)

const retryBatch = 200

func main() {
	// Load configuration
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if cfg.Env == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store, databases and services
	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer container.Close() // Ensure connections are closed when main exits

	var auth echo.MiddlewareFunc
	if cfg.AuthMode == config.AuthFirebase {
		auth = middleware.FirebaseAuthMiddleware(container.Firebase.AuthClient)
	} else {
		auth = middleware.JWTAuthMiddleware(cfg.JWTSecret)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware
	router.SetupMiddleware(e, logger)

	// Setup routes and dependencies
	router.SetupRoutes(e, container, auth)

	// Validator
	e.Validator = validators.NewValidator()

	// Background workers
	go container.Sweeper.Run(ctx, cfg.SweepInterval)
	go container.Projection.RunReconcile(ctx, cfg.ReconcileInterval, container.Locker)
	go container.Notifier.RunRetry(ctx, cfg.DeliveryRetryInterval, retryBatch)

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
