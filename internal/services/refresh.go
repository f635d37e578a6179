package services

import (
	"context"
	"fmt"
	"time"

	"github.com/maliyaleo/market-api/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ForecastStore is the durable forecast cache collaborator.
type ForecastStore interface {
	ClearAll(ctx context.Context) error
	Append(ctx context.Context, records []models.ForecastRecord) (int64, error)
}

// Notifier receives human-readable refresh outcomes. A nil Notifier
// disables notifications.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// RefreshService repopulates the forecast cache for every known group on a
// cron schedule. The cache is cleared and then refilled, not swapped
// atomically: a request landing mid-refresh may see an empty table, which
// callers already treat as a normal "no cached row" outcome.
type RefreshService struct {
	predictor *PredictorService
	cache     ForecastStore
	notifier  Notifier
	horizon   int

	cron *cron.Cron
}

func NewRefreshService(predictor *PredictorService, cache ForecastStore, notifier Notifier, horizonDays int) *RefreshService {
	return &RefreshService{
		predictor: predictor,
		cache:     cache,
		notifier:  notifier,
		horizon:   horizonDays,
	}
}

// Start registers the refresh job on the given cron schedule (e.g.
// "@every 168h") and starts the scheduler.
func (s *RefreshService) Start(schedule string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() {
		if err := s.RefreshAll(context.Background()); err != nil {
			logrus.WithError(err).Error("Scheduled forecast refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to register refresh schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	logrus.WithField("schedule", schedule).Info("Forecast refresh scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *RefreshService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Forecast refresh scheduler stopped")
	}
}

// RefreshAll forecasts every group from today and replaces the cache
// contents.
func (s *RefreshService) RefreshAll(ctx context.Context) error {
	started := time.Now()
	logrus.Info("Starting full forecast refresh")

	records, err := s.predictor.PredictAll(ctx, started, s.horizon)
	if err != nil {
		s.notify(ctx, fmt.Sprintf("Forecast refresh failed: %v", err))
		return fmt.Errorf("failed to forecast all groups: %w", err)
	}
	if len(records) == 0 {
		logrus.Warn("Forecast refresh produced no records, cache left untouched")
		return nil
	}

	if err := s.cache.ClearAll(ctx); err != nil {
		return err
	}
	written, err := s.cache.Append(ctx, records)
	if err != nil {
		s.notify(ctx, fmt.Sprintf("Forecast refresh failed while writing: %v", err))
		return err
	}

	elapsed := time.Since(started)
	logrus.WithFields(logrus.Fields{
		"rows":    written,
		"elapsed": elapsed,
	}).Info("Forecast refresh completed")
	s.notify(ctx, fmt.Sprintf("Forecast refresh completed: %d rows in %s", written, elapsed.Round(time.Second)))
	return nil
}

func (s *RefreshService) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, message); err != nil {
		logrus.WithError(err).Warn("Failed to send refresh notification")
	}
}
