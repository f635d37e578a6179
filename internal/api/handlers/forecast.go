package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/forecast"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// GroupPredictor runs an on-demand forecast for one group.
type GroupPredictor interface {
	PredictGroup(ctx context.Context, group models.GroupKey, start time.Time, horizonDays int) ([]models.ForecastRecord, error)
}

// ForecastCache reads the precomputed predictions table.
type ForecastCache interface {
	Query(ctx context.Context, group models.GroupKey, date *time.Time) ([]models.ForecastRecord, error)
}

type ForecastHandler struct {
	predictor      GroupPredictor
	cache          ForecastCache
	defaultHorizon int
}

func NewForecastHandler(predictor GroupPredictor, cache ForecastCache, defaultHorizon int) *ForecastHandler {
	return &ForecastHandler{predictor: predictor, cache: cache, defaultHorizon: defaultHorizon}
}

// PredictedPrice is one forecast day on the wire.
type PredictedPrice struct {
	Date      string          `json:"date"`
	Wholesale decimal.Decimal `json:"wholesale_price"`
	Retail    decimal.Decimal `json:"retail_price"`
}

// ForecastResponse is the payload of /predict and /latest.
type ForecastResponse struct {
	Commodity       string           `json:"commodity"`
	Classification  string           `json:"classification"`
	Market          string           `json:"market"`
	County          string           `json:"county"`
	StartDate       string           `json:"start_date"`
	PredictedPrices []PredictedPrice `json:"predicted_prices"`
	Currency        string           `json:"currency"`
	ModelVersion    string           `json:"model_version"`
}

// Predict serves POST /api/v1/predict: a live forecast from the latest
// history, bypassing the predictions cache.
func (h *ForecastHandler) Predict(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "commodity, market, county and date are required")
		return
	}

	start, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}
	days := req.Days
	if days <= 0 {
		days = h.defaultHorizon
	}

	group := models.GroupKey{
		Commodity: strings.TrimSpace(req.Commodity),
		Market:    strings.TrimSpace(req.Market),
		County:    strings.TrimSpace(req.County),
	}
	records, err := h.predictor.PredictGroup(c.Request.Context(), group, start, days)
	if err != nil {
		var mismatch *forecast.SchemaMismatchError
		if errors.As(err, &mismatch) {
			logrus.WithError(err).Error("Feature schema mismatch during prediction")
		} else {
			logrus.WithError(err).Error("Prediction failed")
		}
		respondError(c, http.StatusInternalServerError, "Prediction failed")
		return
	}
	if len(records) == 0 {
		respondError(c, http.StatusNotFound,
			fmt.Sprintf("No predictions for %s in %s.", group.Commodity, group.Market))
		return
	}

	respondSuccess(c, buildForecastResponse(records), "Price forecast retrieved successfully.")
}

// Latest serves GET /api/v1/latest?commodity&market&county&date? from the
// predictions table.
func (h *ForecastHandler) Latest(c *gin.Context) {
	group := models.GroupKey{
		Commodity: strings.TrimSpace(c.Query("commodity")),
		Market:    strings.TrimSpace(c.Query("market")),
		County:    strings.TrimSpace(c.Query("county")),
	}
	if group.Commodity == "" || group.Market == "" || group.County == "" {
		respondError(c, http.StatusBadRequest, "commodity, market and county are required")
		return
	}

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	records, err := h.cache.Query(c.Request.Context(), group, date)
	if err != nil {
		logrus.WithError(err).Error("Failed to query cached predictions")
		respondError(c, http.StatusInternalServerError, "Failed to query cached predictions")
		return
	}
	if len(records) == 0 {
		respondError(c, http.StatusNotFound,
			fmt.Sprintf("No cached predictions for %s in %s.", group.Commodity, group.Market))
		return
	}

	respondSuccess(c, buildForecastResponse(records), "Cached predictions retrieved.")
}

func buildForecastResponse(records []models.ForecastRecord) ForecastResponse {
	first := records[0]
	resp := ForecastResponse{
		Commodity:       first.Commodity,
		Classification:  first.Classification,
		Market:          first.Market,
		County:          first.County,
		StartDate:       first.Date.Format("2006-01-02"),
		PredictedPrices: make([]PredictedPrice, len(records)),
		Currency:        first.Currency,
		ModelVersion:    first.ModelVersion,
	}
	for i, rec := range records {
		resp.PredictedPrices[i] = PredictedPrice{
			Date:      rec.Date.Format("2006-01-02"),
			Wholesale: rec.Wholesale,
			Retail:    rec.Retail,
		}
	}
	return resp
}
