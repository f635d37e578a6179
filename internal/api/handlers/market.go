package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/database"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const historyCacheTTL = 5 * time.Minute

// HistoryStore is the slice of the market repository the read endpoints
// need.
type HistoryStore interface {
	FetchRecent(ctx context.Context, commodity, market string, limit int) ([]models.PriceRecord, error)
	ListMarkets(ctx context.Context) ([]models.MarketInfo, error)
}

type MarketHandler struct {
	store HistoryStore
	redis *database.RedisClient
}

func NewMarketHandler(store HistoryStore, redis *database.RedisClient) *MarketHandler {
	return &MarketHandler{store: store, redis: redis}
}

// HistoryRow is one observed price row as the dashboard consumes it.
type HistoryRow struct {
	Date           string              `json:"date"`
	Commodity      string              `json:"commodity"`
	Classification string              `json:"classification"`
	Market         string              `json:"market"`
	County         string              `json:"county"`
	Wholesale      decimal.NullDecimal `json:"wholesale_unit_price"`
	Retail         decimal.NullDecimal `json:"retail_unit_price"`
}

// GetHistory serves GET /api/v1/history?commodity&market&days. Responses
// are cached in Redis per (commodity, market, days) so dashboard refreshes
// do not hammer the table.
func (h *MarketHandler) GetHistory(c *gin.Context) {
	commodity := c.Query("commodity")
	market := c.Query("market")
	if commodity == "" || market == "" {
		respondError(c, http.StatusBadRequest, "commodity and market are required")
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	cacheKey := fmt.Sprintf("history:%s:%s:%d", commodity, market, days)
	if rows, ok := h.cachedHistory(c.Request.Context(), cacheKey); ok {
		respondSuccess(c, rows, "Historical prices retrieved.")
		return
	}

	records, err := h.store.FetchRecent(c.Request.Context(), commodity, market, days)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch price history")
		respondError(c, http.StatusInternalServerError, "Failed to fetch price history")
		return
	}
	if len(records) == 0 {
		respondError(c, http.StatusNotFound,
			fmt.Sprintf("No data found for %s in %s.", commodity, market))
		return
	}

	rows := make([]HistoryRow, len(records))
	for i, rec := range records {
		rows[i] = HistoryRow{
			Date:           rec.Date.Format("2006-01-02"),
			Commodity:      rec.Commodity,
			Classification: rec.Classification,
			Market:         rec.Market,
			County:         rec.County,
			Wholesale:      rec.Wholesale,
			Retail:         rec.Retail,
		}
	}
	h.cacheHistory(c.Request.Context(), cacheKey, rows)
	respondSuccess(c, rows, "Historical prices retrieved.")
}

// ListMarkets serves GET /api/v1/markets.
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	markets, err := h.store.ListMarkets(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to list markets")
		respondError(c, http.StatusInternalServerError, "Failed to list markets")
		return
	}
	respondSuccess(c, markets, "Markets retrieved.")
}

func (h *MarketHandler) cachedHistory(ctx context.Context, key string) ([]HistoryRow, bool) {
	if h.redis == nil {
		return nil, false
	}
	raw, err := h.redis.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var rows []HistoryRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		logrus.WithError(err).Warn("Failed to unmarshal cached history")
		return nil, false
	}
	return rows, true
}

func (h *MarketHandler) cacheHistory(ctx context.Context, key string, rows []HistoryRow) {
	if h.redis == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		logrus.WithError(err).Warn("Failed to marshal history for caching")
		return
	}
	if err := h.redis.Set(ctx, key, string(data), historyCacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache history")
	}
}
