package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maliyaleo/market-api/internal/api/handlers"
)

// Handlers carries the constructed handler set into route registration.
type Handlers struct {
	Health   *handlers.HealthHandler
	Market   *handlers.MarketHandler
	Forecast *handlers.ForecastHandler
	Analysis *handlers.AnalysisHandler
	USSD     *handlers.USSDHandler
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to MaliYaLeo – Your market price prediction API is running!",
		})
	})
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/history", h.Market.GetHistory)
		v1.GET("/markets", h.Market.ListMarkets)

		v1.POST("/predict", h.Forecast.Predict)
		v1.GET("/latest", h.Forecast.Latest)

		analysis := v1.Group("/analysis")
		{
			analysis.GET("/trend", h.Analysis.GetTrend)
		}
	}

	// The USSD gateway posts outside the versioned tree.
	router.POST("/ussd", h.USSD.Handle)
}
