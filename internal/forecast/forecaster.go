package forecast

import (
	"math"
	"time"

	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
)

// Currency is the fixed currency tag carried by every forecast record.
const Currency = "KES"

// Forecast produces one record per (group, day) over the requested horizon.
// Only the calendar-derived fields are recomputed per day; the rolling
// averages and one-hot block stay fixed at their last-observed values for
// the entire horizon. True future rolling averages are unknown at forecast
// time, so the models are deliberately fed stale averages rather than a
// feedback loop of prior forecast outputs. Preserve that behavior: it is a
// documented approximation, not a bug.
//
// An empty snapshot set returns (nil, nil) so callers can answer with a
// structured not-found instead of a failure.
func Forecast(snapshots []Snapshot, pair *ModelPair, schema FeatureSchema, start time.Time, horizonDays int, modelVersion string) ([]models.ForecastRecord, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}

	monthIdx := schema.Index(ColMonth)
	weekIdx := schema.Index(ColWeekOfYear)
	dowIdx := schema.Index(ColDayOfWeek)
	if monthIdx < 0 || weekIdx < 0 || dowIdx < 0 {
		return nil, NewSchemaMismatchErrorf("schema is missing calendar columns")
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	records := make([]models.ForecastRecord, 0, len(snapshots)*horizonDays)
	for _, snap := range snapshots {
		if len(snap.Features) != len(schema) {
			return nil, NewSchemaMismatchErrorf(
				"snapshot for %s/%s has %d features, schema has %d",
				snap.Meta.Commodity, snap.Meta.Market, len(snap.Features), len(schema))
		}
		vec := append([]float64(nil), snap.Features...)

		for day := 0; day < horizonDays; day++ {
			d := start.AddDate(0, 0, day)
			vec[monthIdx], vec[weekIdx], vec[dowIdx] = CalendarFeatures(d)

			logW, err := pair.Wholesale.Predict(vec)
			if err != nil {
				return nil, err
			}
			logR, err := pair.Retail.Predict(vec)
			if err != nil {
				return nil, err
			}

			records = append(records, models.ForecastRecord{
				Date:           d,
				Commodity:      snap.Meta.Commodity,
				Classification: snap.Meta.Classification,
				Market:         snap.Meta.Market,
				County:         snap.Meta.County,
				Wholesale:      roundPrice(math.Expm1(logW)),
				Retail:         roundPrice(math.Expm1(logR)),
				Currency:       Currency,
				ModelVersion:   modelVersion,
			})
		}
	}
	return records, nil
}

func roundPrice(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
