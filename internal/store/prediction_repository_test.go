package store

import (
	"context"
	"testing"
	"time"

	"github.com/maliyaleo/market-api/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForecast(date time.Time) models.ForecastRecord {
	return models.ForecastRecord{
		Date:           date,
		Commodity:      "Maize",
		Classification: "Cereals",
		Market:         "Nairobi",
		County:         "Nairobi",
		Wholesale:      decimal.NewFromFloat(112.34),
		Retail:         decimal.NewFromFloat(140.56),
		Currency:       "KES",
		ModelVersion:   "v1",
	}
}

func TestPredictionRepository_ClearAll(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	mock.ExpectExec(`DELETE FROM predictions`).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	require.NoError(t, repo.ClearAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_AppendCountsRows(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	day := time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)
	records := []models.ForecastRecord{sampleForecast(day), sampleForecast(day.AddDate(0, 0, 1))}
	for _, rec := range records {
		mock.ExpectExec(`INSERT INTO predictions`).
			WithArgs(rec.Date, rec.Commodity, rec.Classification, rec.Market, rec.County,
				rec.Wholesale, rec.Retail, rec.Currency, rec.ModelVersion).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	written, err := repo.Append(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_QueryByGroup(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	day := time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM predictions\s+WHERE "Commodity" = \$1 AND "Market" = \$2 AND "County" = \$3 ORDER BY "Date" ASC`).
		WithArgs("Maize", "Nairobi", "Nairobi").
		WillReturnRows(pgxmock.NewRows([]string{
			"Date", "Commodity", "classification", "Market", "County",
			"Wholesale_price", "Retail_price", "Currency", "Model_version",
		}).AddRow(day, "Maize", "Cereals", "Nairobi", "Nairobi",
			decimal.NewFromFloat(112.34), decimal.NewFromFloat(140.56), "KES", "v1"))

	records, err := repo.Query(context.Background(),
		models.GroupKey{Commodity: "Maize", Market: "Nairobi", County: "Nairobi"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Wholesale.Equal(decimal.NewFromFloat(112.34)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_QueryWithDate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	day := time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM predictions\s+WHERE "Commodity" = \$1 AND "Market" = \$2 AND "County" = \$3 AND "Date" = \$4 ORDER BY "Date" ASC`).
		WithArgs("Maize", "Nairobi", "Nairobi", day).
		WillReturnRows(pgxmock.NewRows([]string{
			"Date", "Commodity", "classification", "Market", "County",
			"Wholesale_price", "Retail_price", "Currency", "Model_version",
		}))

	records, err := repo.Query(context.Background(),
		models.GroupKey{Commodity: "Maize", Market: "Nairobi", County: "Nairobi"}, &day)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_QueryPrice(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	day := time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)
	group := models.GroupKey{Commodity: "Maize", Market: "Nairobi", County: "Nairobi"}

	mock.ExpectQuery(`SELECT "Retail_price" FROM predictions`).
		WithArgs(group.Commodity, group.Market, group.County, day).
		WillReturnRows(pgxmock.NewRows([]string{"Retail_price"}).
			AddRow(decimal.NewFromFloat(140.56)))

	price, err := repo.QueryPrice(context.Background(), group, day, Retail)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.NewFromFloat(140.56)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_QueryPriceNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPredictionRepository(mock)

	day := time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)
	group := models.GroupKey{Commodity: "Maize", Market: "Gikomba", County: "Nairobi"}

	mock.ExpectQuery(`SELECT "Wholesale_price" FROM predictions`).
		WithArgs(group.Commodity, group.Market, group.County, day).
		WillReturnRows(pgxmock.NewRows([]string{"Wholesale_price"}))

	price, err := repo.QueryPrice(context.Background(), group, day, Wholesale)
	require.NoError(t, err)
	assert.Nil(t, price)
	assert.NoError(t, mock.ExpectationsWereMet())
}
