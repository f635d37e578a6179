package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/maliyaleo/market-api/internal/config"
	"github.com/maliyaleo/market-api/internal/database"
	"github.com/maliyaleo/market-api/internal/forecast"
	"github.com/maliyaleo/market-api/internal/logging"
	"github.com/maliyaleo/market-api/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	output := flag.String("output", "", "artifact path, overrides forecast.artifact_path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.Environment)
	path := cfg.Forecast.ArtifactPath
	if *output != "" {
		path = *output
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	markets := store.NewMarketRepository(db.Pool)

	records, err := markets.FetchHistory(ctx, nil)
	if err != nil {
		logrus.Fatalf("Failed to fetch market history: %v", err)
	}
	logrus.WithField("rows", len(records)).Info("Market history fetched")

	ts, encoder := forecast.BuildTrainingSet(records)
	pair, err := forecast.TrainPair(ts)
	if err != nil {
		logrus.Fatalf("Training failed: %v", err)
	}

	artifacts := &forecast.Artifacts{
		Version:      cfg.Forecast.ModelVersion,
		TrainedAt:    time.Now().UTC(),
		Schema:       ts.Schema,
		Encoder:      encoder,
		Models:       pair,
		TrainingRows: len(ts.Features),
	}
	if err := forecast.SaveArtifacts(path, artifacts); err != nil {
		logrus.Fatalf("Failed to save artifacts: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":          path,
		"version":       artifacts.Version,
		"training_rows": artifacts.TrainingRows,
		"features":      len(artifacts.Schema),
	}).Info("Training complete, artifacts saved")
}
