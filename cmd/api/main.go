package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/werent/review-platform/internal/config"
	"github.com/werent/review-platform/internal/delivery/events"
	httpDelivery "github.com/werent/review-platform/internal/delivery/http"
	"github.com/werent/review-platform/internal/delivery/http/handler"
	"github.com/werent/review-platform/internal/pkg/cache"
	"github.com/werent/review-platform/internal/pkg/database"
	"github.com/werent/review-platform/internal/pkg/logger"
	cacheRepo "github.com/werent/review-platform/internal/repository/cache"
	"github.com/werent/review-platform/internal/repository/postgres"
	"github.com/werent/review-platform/internal/storage/s3"
	"github.com/werent/review-platform/internal/usecase/catalog"
	"github.com/werent/review-platform/internal/usecase/review"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Review Platform API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}
	appLogger.Info("Database migrations applied")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	appLogger.Info("Connecting to media storage...")
	mediaStore, err := s3.NewStore(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create media store", err)
	}

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	helpfulRepo := postgres.NewHelpfulRepository(db)
	identityRepo := postgres.NewIdentityRepository(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.SummaryTTL,
		cfg.Cache.ReviewsListTTL,
	)

	catalogService := catalog.NewService(productRepo, mediaStore, redisCache, appLogger)
	reviewService := review.NewService(reviewRepo, helpfulRepo, mediaStore, redisCache, publisher, appLogger)

	productHandler := handler.NewProductHandler(catalogService, cfg, appLogger)
	reviewHandler := handler.NewReviewHandler(reviewService, cfg, appLogger)

	router := httpDelivery.NewRouter(productHandler, reviewHandler, identityRepo, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
