package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/maliyaleo/market-api/internal/api"
	"github.com/maliyaleo/market-api/internal/api/handlers"
	"github.com/maliyaleo/market-api/internal/config"
	"github.com/maliyaleo/market-api/internal/database"
	"github.com/maliyaleo/market-api/internal/forecast"
	"github.com/maliyaleo/market-api/internal/logging"
	"github.com/maliyaleo/market-api/internal/middleware"
	"github.com/maliyaleo/market-api/internal/services"
	"github.com/maliyaleo/market-api/internal/store"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(cfg.LogLevel, cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	artifacts, err := forecast.LoadArtifacts(cfg.Forecast.ArtifactPath)
	if err != nil {
		logrus.Fatalf("Failed to load forecast artifacts from %s: %v", cfg.Forecast.ArtifactPath, err)
	}
	logrus.WithFields(logrus.Fields{
		"version":       artifacts.Version,
		"trained_at":    artifacts.TrainedAt,
		"training_rows": artifacts.TrainingRows,
	}).Info("Forecast artifacts loaded")

	markets := store.NewMarketRepository(db.Pool)
	predictions := store.NewPredictionRepository(db.Pool)
	users := store.NewUserRepository(db.Pool)

	predictor := services.NewPredictorService(markets, artifacts)
	analytics := services.NewAnalyticsService(markets)

	var notifier services.Notifier
	if telegram, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID); err != nil {
		logrus.WithError(err).Warn("Telegram notifier unavailable")
	} else if telegram != nil {
		notifier = telegram
	}

	refresh := services.NewRefreshService(predictor, predictions, notifier, cfg.Forecast.DefaultHorizon)
	if err := refresh.Start(cfg.Forecast.RefreshSchedule); err != nil {
		logrus.Fatalf("Failed to start forecast refresh scheduler: %v", err)
	}
	defer refresh.Stop()

	if cfg.Forecast.RefreshOnStart {
		go func() {
			if err := refresh.RefreshAll(context.Background()); err != nil {
				logrus.WithError(err).Error("Initial forecast refresh failed")
			}
		}()
	}

	router := gin.Default()
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	api.SetupRoutes(router, api.Handlers{
		Health:   handlers.NewHealthHandler(db, redis, version),
		Market:   handlers.NewMarketHandler(markets, redis),
		Forecast: handlers.NewForecastHandler(predictor, predictions, cfg.Forecast.DefaultHorizon),
		Analysis: handlers.NewAnalysisHandler(analytics),
		USSD:     handlers.NewUSSDHandler(users, predictions, cfg.USSD.MaxPastDays, cfg.USSD.MaxFutureDays),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
