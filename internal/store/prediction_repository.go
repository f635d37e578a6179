package store

import (
	"context"
	"fmt"
	"time"

	"github.com/maliyaleo/market-api/internal/models"
	"github.com/shopspring/decimal"
)

// PriceType selects which predicted price column a USSD lookup reads.
type PriceType string

const (
	Wholesale PriceType = "Wholesale"
	Retail    PriceType = "Retail"
)

// PredictionRepository is the durable forecast cache. Writes are
// append-only with no dedup: a batch refresh clears the whole table first,
// so a request arriving mid-refresh may legitimately find nothing. Callers
// treat an empty result as "no cached row yet", never as corruption.
type PredictionRepository struct {
	db Querier
}

func NewPredictionRepository(db Querier) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// ClearAll empties the forecast cache ahead of a batch refresh.
func (r *PredictionRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to clear predictions: %w", err)
	}
	return nil
}

// Append inserts forecast rows and returns the count written. There is no
// upsert: a batch refresh clears the table first, so repeated writes for
// the same (group, date) only happen if two refreshes overlap.
func (r *PredictionRepository) Append(ctx context.Context, records []models.ForecastRecord) (int64, error) {
	var written int64
	for _, rec := range records {
		tag, err := r.db.Exec(ctx,
			`INSERT INTO predictions ("Date", "Commodity", "classification", "Market", "County", "Wholesale_price", "Retail_price", "Currency", "Model_version")
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.Date, rec.Commodity, rec.Classification, rec.Market, rec.County,
			rec.Wholesale, rec.Retail, rec.Currency, rec.ModelVersion)
		if err != nil {
			return written, fmt.Errorf("failed to append prediction: %w", err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

// Query returns cached forecasts for a group ordered by date ascending,
// optionally restricted to one day.
func (r *PredictionRepository) Query(ctx context.Context, group models.GroupKey, date *time.Time) ([]models.ForecastRecord, error) {
	query := `SELECT "Date", "Commodity", "classification", "Market", "County", "Wholesale_price", "Retail_price", "Currency", "Model_version"
		FROM predictions
		WHERE "Commodity" = $1 AND "Market" = $2 AND "County" = $3`
	args := []interface{}{group.Commodity, group.Market, group.County}
	if date != nil {
		query += ` AND "Date" = $4`
		args = append(args, *date)
	}
	query += ` ORDER BY "Date" ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []models.ForecastRecord
	for rows.Next() {
		var rec models.ForecastRecord
		if err := rows.Scan(&rec.Date, &rec.Commodity, &rec.Classification, &rec.Market, &rec.County,
			&rec.Wholesale, &rec.Retail, &rec.Currency, &rec.ModelVersion); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return records, nil
}

// QueryPrice returns a single cached price for the USSD flow, or
// (nil, nil) when no row matches.
func (r *PredictionRepository) QueryPrice(ctx context.Context, group models.GroupKey, date time.Time, priceType PriceType) (*decimal.Decimal, error) {
	column := `"Wholesale_price"`
	if priceType == Retail {
		column = `"Retail_price"`
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+column+` FROM predictions
		 WHERE "Commodity" = $1 AND "Market" = $2 AND "County" = $3 AND "Date" = $4
		 LIMIT 1`,
		group.Commodity, group.Market, group.County, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction price: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var price decimal.Decimal
	if err := rows.Scan(&price); err != nil {
		return nil, fmt.Errorf("failed to scan prediction price: %w", err)
	}
	return &price, nil
}
