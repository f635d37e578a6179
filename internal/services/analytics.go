package services

import (
	"context"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
)

// TrendSummary aggregates recent price movement for one group, the backing
// data for the dashboard trend panel.
type TrendSummary struct {
	Commodity     string          `json:"commodity"`
	Market        string          `json:"market"`
	County        string          `json:"county"`
	Samples       int             `json:"samples"`
	LatestDate    time.Time       `json:"latest_date"`
	WholesaleSMA  decimal.Decimal `json:"wholesale_sma"`
	WholesaleEMA  decimal.Decimal `json:"wholesale_ema"`
	RetailSMA     decimal.Decimal `json:"retail_sma"`
	RetailEMA     decimal.Decimal `json:"retail_ema"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Direction     string          `json:"direction"` // "rising", "falling", "steady"
}

// AnalyticsService computes rolling-trend aggregates over historical
// prices.
type AnalyticsService struct {
	markets   HistorySource
	smaPeriod int
	emaPeriod int
}

func NewAnalyticsService(markets HistorySource) *AnalyticsService {
	return &AnalyticsService{markets: markets, smaPeriod: 7, emaPeriod: 7}
}

// GroupTrend summarises one group's recent movement. A group with fewer
// rows than one indicator period yields (nil, nil).
func (s *AnalyticsService) GroupTrend(ctx context.Context, group models.GroupKey) (*TrendSummary, error) {
	records, err := s.markets.FetchHistory(ctx, &group)
	if err != nil {
		return nil, err
	}

	var wholesale, retail []float64
	var latest time.Time
	for _, rec := range records {
		if !rec.Wholesale.Valid || !rec.Retail.Valid {
			continue
		}
		w, _ := rec.Wholesale.Decimal.Float64()
		r, _ := rec.Retail.Decimal.Float64()
		wholesale = append(wholesale, w)
		retail = append(retail, r)
		latest = rec.Date
	}
	if len(wholesale) < s.smaPeriod {
		return nil, nil
	}

	last := func(values []float64) float64 { return values[len(values)-1] }
	wholesaleSMA := lastIndicatorValue(trend.NewSmaWithPeriod[float64](s.smaPeriod), wholesale)
	retailSMA := lastIndicatorValue(trend.NewSmaWithPeriod[float64](s.smaPeriod), retail)
	wholesaleEMA := lastIndicatorValue(trend.NewEmaWithPeriod[float64](s.emaPeriod), wholesale)
	retailEMA := lastIndicatorValue(trend.NewEmaWithPeriod[float64](s.emaPeriod), retail)

	first := wholesale[0]
	change := 0.0
	if first != 0 {
		change = (last(wholesale) - first) / first * 100
	}

	direction := "steady"
	switch {
	case last(wholesale) > wholesaleSMA*1.01:
		direction = "rising"
	case last(wholesale) < wholesaleSMA*0.99:
		direction = "falling"
	}

	return &TrendSummary{
		Commodity:     group.Commodity,
		Market:        group.Market,
		County:        group.County,
		Samples:       len(wholesale),
		LatestDate:    latest,
		WholesaleSMA:  decimal.NewFromFloat(wholesaleSMA).Round(2),
		WholesaleEMA:  decimal.NewFromFloat(wholesaleEMA).Round(2),
		RetailSMA:     decimal.NewFromFloat(retailSMA).Round(2),
		RetailEMA:     decimal.NewFromFloat(retailEMA).Round(2),
		ChangePercent: decimal.NewFromFloat(change).Round(2),
		Direction:     direction,
	}, nil
}

type streamIndicator interface {
	Compute(c <-chan float64) <-chan float64
}

func lastIndicatorValue(ind streamIndicator, values []float64) float64 {
	out := helper.ChanToSlice(ind.Compute(helper.SliceToChan(values)))
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}
