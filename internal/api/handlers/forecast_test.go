package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/forecast"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	records []models.ForecastRecord
	err     error

	lastGroup   models.GroupKey
	lastStart   time.Time
	lastHorizon int
}

func (f *fakePredictor) PredictGroup(_ context.Context, group models.GroupKey, start time.Time, horizonDays int) ([]models.ForecastRecord, error) {
	f.lastGroup = group
	f.lastStart = start
	f.lastHorizon = horizonDays
	return f.records, f.err
}

type fakeForecastCache struct {
	records []models.ForecastRecord
	err     error

	lastDate *time.Time
}

func (f *fakeForecastCache) Query(_ context.Context, _ models.GroupKey, date *time.Time) ([]models.ForecastRecord, error) {
	f.lastDate = date
	return f.records, f.err
}

func sampleForecasts(start string, days int) []models.ForecastRecord {
	d, _ := time.Parse("2006-01-02", start)
	out := make([]models.ForecastRecord, days)
	for i := range out {
		out[i] = models.ForecastRecord{
			Date:           d.AddDate(0, 0, i),
			Commodity:      "Maize",
			Classification: "Cereals",
			Market:         "Nairobi",
			County:         "Nairobi",
			Wholesale:      decimal.NewFromFloat(102.5),
			Retail:         decimal.NewFromFloat(131.75),
			Currency:       "KES",
			ModelVersion:   "v1",
		}
	}
	return out
}

func newForecastRouter(predictor *fakePredictor, cache *fakeForecastCache) *gin.Engine {
	router := gin.New()
	h := NewForecastHandler(predictor, cache, 7)
	router.POST("/api/v1/predict", h.Predict)
	router.GET("/api/v1/latest", h.Latest)
	return router
}

func TestPredict(t *testing.T) {
	predictor := &fakePredictor{records: sampleForecasts("2025-07-28", 7)}
	router := newForecastRouter(predictor, &fakeForecastCache{})

	body := `{"commodity":"Maize","market":"Nairobi","county":"Nairobi","date":"2025-07-28","days":7}`
	w := performRequest(router, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Maize", data["commodity"])
	assert.Equal(t, "Cereals", data["classification"])
	assert.Equal(t, "2025-07-28", data["start_date"])
	assert.Equal(t, "KES", data["currency"])
	assert.Equal(t, "v1", data["model_version"])
	prices, ok := data["predicted_prices"].([]interface{})
	require.True(t, ok)
	assert.Len(t, prices, 7)

	assert.Equal(t, models.GroupKey{Commodity: "Maize", Market: "Nairobi", County: "Nairobi"}, predictor.lastGroup)
	assert.Equal(t, 7, predictor.lastHorizon)
}

func TestPredict_DefaultHorizon(t *testing.T) {
	predictor := &fakePredictor{records: sampleForecasts("2025-07-28", 7)}
	router := newForecastRouter(predictor, &fakeForecastCache{})

	body := `{"commodity":"Maize","market":"Nairobi","county":"Nairobi","date":"2025-07-28"}`
	w := performRequest(router, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, predictor.lastHorizon)
}

func TestPredict_MissingFields(t *testing.T) {
	router := newForecastRouter(&fakePredictor{}, &fakeForecastCache{})

	w := performRequest(router, http.MethodPost, "/api/v1/predict", `{"commodity":"Maize"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_BadDate(t *testing.T) {
	router := newForecastRouter(&fakePredictor{}, &fakeForecastCache{})

	body := `{"commodity":"Maize","market":"Nairobi","county":"Nairobi","date":"28-07-2025"}`
	w := performRequest(router, http.MethodPost, "/api/v1/predict", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_NoData(t *testing.T) {
	router := newForecastRouter(&fakePredictor{}, &fakeForecastCache{})

	body := `{"commodity":"Yams","market":"Eldoret","county":"Uasin Gishu","date":"2025-07-28"}`
	w := performRequest(router, http.MethodPost, "/api/v1/predict", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Contains(t, resp.Message, "No predictions")
}

func TestPredict_SchemaMismatch(t *testing.T) {
	predictor := &fakePredictor{err: forecast.NewSchemaMismatchErrorf("expected 12 features, got 9")}
	router := newForecastRouter(predictor, &fakeForecastCache{})

	body := `{"commodity":"Maize","market":"Nairobi","county":"Nairobi","date":"2025-07-28"}`
	w := performRequest(router, http.MethodPost, "/api/v1/predict", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLatest(t *testing.T) {
	cache := &fakeForecastCache{records: sampleForecasts("2025-07-28", 3)}
	router := newForecastRouter(&fakePredictor{}, cache)

	w := performRequest(router, http.MethodGet, "/api/v1/latest?commodity=Maize&market=Nairobi&county=Nairobi", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	prices, ok := data["predicted_prices"].([]interface{})
	require.True(t, ok)
	assert.Len(t, prices, 3)
	assert.Nil(t, cache.lastDate)
}

func TestLatest_DateFilter(t *testing.T) {
	cache := &fakeForecastCache{records: sampleForecasts("2025-07-28", 1)}
	router := newForecastRouter(&fakePredictor{}, cache)

	w := performRequest(router, http.MethodGet, "/api/v1/latest?commodity=Maize&market=Nairobi&county=Nairobi&date=2025-07-28", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, cache.lastDate)
	assert.Equal(t, time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC), *cache.lastDate)
}

func TestLatest_MissingParams(t *testing.T) {
	router := newForecastRouter(&fakePredictor{}, &fakeForecastCache{})

	w := performRequest(router, http.MethodGet, "/api/v1/latest?commodity=Maize", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatest_NotFound(t *testing.T) {
	router := newForecastRouter(&fakePredictor{}, &fakeForecastCache{})

	w := performRequest(router, http.MethodGet, "/api/v1/latest?commodity=Maize&market=Nairobi&county=Nairobi", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Contains(t, resp.Message, "No cached predictions")
}

func TestLatest_CacheError(t *testing.T) {
	cache := &fakeForecastCache{err: errors.New("db down")}
	router := newForecastRouter(&fakePredictor{}, cache)

	w := performRequest(router, http.MethodGet, "/api/v1/latest?commodity=Maize&market=Nairobi&county=Nairobi", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
