package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maliyaleo/market-api/internal/forecast"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/sirupsen/logrus"
)

// HistorySource is the historical data collaborator the pipeline reads
// from, returning records ordered by date ascending.
type HistorySource interface {
	FetchHistory(ctx context.Context, group *models.GroupKey) ([]models.PriceRecord, error)
	ListGroups(ctx context.Context) ([]models.GroupKey, error)
}

// PredictorService runs the inference half of the pipeline: fetch recent
// history for a group, build its latest feature snapshot and roll the
// models across the requested horizon. The trained artifacts are loaded
// once and treated as read-only; a retrain swaps the whole reference.
type PredictorService struct {
	markets HistorySource

	mu        sync.RWMutex
	artifacts *forecast.Artifacts
}

func NewPredictorService(markets HistorySource, artifacts *forecast.Artifacts) *PredictorService {
	return &PredictorService{markets: markets, artifacts: artifacts}
}

// Artifacts returns the currently loaded artifact bundle.
func (s *PredictorService) Artifacts() *forecast.Artifacts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts
}

// ReloadArtifacts atomically replaces the model bundle, e.g. after a
// retrain. Requests in flight keep the bundle they started with.
func (s *PredictorService) ReloadArtifacts(path string) error {
	a, err := forecast.LoadArtifacts(path)
	if err != nil {
		return fmt.Errorf("failed to reload artifacts: %w", err)
	}
	s.mu.Lock()
	s.artifacts = a
	s.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"version":    a.Version,
		"trained_at": a.TrainedAt,
	}).Info("Forecast artifacts reloaded")
	return nil
}

// PredictGroup forecasts one group over the horizon. A group with no
// history returns (nil, nil): "no data" is a structured outcome the
// handler turns into a not-found response, never a failure.
func (s *PredictorService) PredictGroup(ctx context.Context, group models.GroupKey, start time.Time, horizonDays int) ([]models.ForecastRecord, error) {
	artifacts := s.Artifacts()
	if artifacts == nil {
		return nil, fmt.Errorf("no forecast artifacts loaded")
	}

	records, err := s.markets.FetchHistory(ctx, &group)
	if err != nil {
		return nil, err
	}

	snapshots, err := forecast.BuildSnapshots(records, artifacts.Encoder, artifacts.Schema)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	return forecast.Forecast(snapshots, artifacts.Models, artifacts.Schema, start, horizonDays, artifacts.Version)
}

// PredictAll forecasts every known group, the work of a batch refresh.
func (s *PredictorService) PredictAll(ctx context.Context, start time.Time, horizonDays int) ([]models.ForecastRecord, error) {
	artifacts := s.Artifacts()
	if artifacts == nil {
		return nil, fmt.Errorf("no forecast artifacts loaded")
	}

	records, err := s.markets.FetchHistory(ctx, nil)
	if err != nil {
		return nil, err
	}

	snapshots, err := forecast.BuildSnapshots(records, artifacts.Encoder, artifacts.Schema)
	if err != nil {
		return nil, err
	}

	return forecast.Forecast(snapshots, artifacts.Models, artifacts.Schema, start, horizonDays, artifacts.Version)
}
