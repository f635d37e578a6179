package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/maliyaleo/market-api/internal/services"
	"github.com/sirupsen/logrus"
)

// TrendSource computes trend summaries for the dashboard.
type TrendSource interface {
	GroupTrend(ctx context.Context, group models.GroupKey) (*services.TrendSummary, error)
}

type AnalysisHandler struct {
	analytics TrendSource
}

func NewAnalysisHandler(analytics TrendSource) *AnalysisHandler {
	return &AnalysisHandler{analytics: analytics}
}

// GetTrend serves GET /api/v1/analysis/trend?commodity&market&county.
func (h *AnalysisHandler) GetTrend(c *gin.Context) {
	group := models.GroupKey{
		Commodity: strings.TrimSpace(c.Query("commodity")),
		Market:    strings.TrimSpace(c.Query("market")),
		County:    strings.TrimSpace(c.Query("county")),
	}
	if group.Commodity == "" || group.Market == "" || group.County == "" {
		respondError(c, http.StatusBadRequest, "commodity, market and county are required")
		return
	}

	summary, err := h.analytics.GroupTrend(c.Request.Context(), group)
	if err != nil {
		logrus.WithError(err).Error("Failed to compute trend summary")
		respondError(c, http.StatusInternalServerError, "Failed to compute trend summary")
		return
	}
	if summary == nil {
		respondError(c, http.StatusNotFound,
			fmt.Sprintf("Not enough data for %s in %s.", group.Commodity, group.Market))
		return
	}
	respondSuccess(c, summary, "Trend summary retrieved.")
}
