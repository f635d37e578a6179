package store

import (
	"context"
	"fmt"

	"github.com/maliyaleo/market-api/internal/models"
)

// MarketRepository reads the historical price table. All queries are
// parameterized; user input never reaches the SQL text.
type MarketRepository struct {
	db Querier
}

func NewMarketRepository(db Querier) *MarketRepository {
	return &MarketRepository{db: db}
}

const priceColumns = `"Date", "Commodity", "Classification", "County", "Market", "WholesaleUnitPrice", "RetailUnitPrice"`

// FetchHistory returns price records ordered by date ascending, optionally
// restricted to a single (commodity, market, county) group.
func (r *MarketRepository) FetchHistory(ctx context.Context, group *models.GroupKey) ([]models.PriceRecord, error) {
	query := `SELECT ` + priceColumns + ` FROM market_data`
	args := []interface{}{}
	if group != nil {
		query += ` WHERE "Commodity" = $1 AND "Market" = $2 AND "County" = $3`
		args = append(args, group.Commodity, group.Market, group.County)
	}
	query += ` ORDER BY "Date" ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market history: %w", err)
	}
	defer rows.Close()

	return scanPriceRecords(rows)
}

// FetchRecent returns the most recent rows for a commodity/market pairing,
// newest first, capped at limit.
func (r *MarketRepository) FetchRecent(ctx context.Context, commodity, market string, limit int) ([]models.PriceRecord, error) {
	query := `SELECT ` + priceColumns + ` FROM market_data
		WHERE "Commodity" = $1 AND "Market" = $2
		ORDER BY "Date" DESC LIMIT $3`

	rows, err := r.db.Query(ctx, query, commodity, market, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent prices: %w", err)
	}
	defer rows.Close()

	return scanPriceRecords(rows)
}

// ListGroups returns every distinct (commodity, market, county) tuple with
// observed prices, the work list for a full forecast refresh.
func (r *MarketRepository) ListGroups(ctx context.Context) ([]models.GroupKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT "Commodity", "Market", "County" FROM market_data ORDER BY "Commodity", "Market", "County"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupKey
	for rows.Next() {
		var g models.GroupKey
		if err := rows.Scan(&g.Commodity, &g.Market, &g.County); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// ListMarkets returns the distinct market/county pairings for the dashboard.
func (r *MarketRepository) ListMarkets(ctx context.Context) ([]models.MarketInfo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT "Market", "County" FROM market_data ORDER BY "Market", "County"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	defer rows.Close()

	var markets []models.MarketInfo
	for rows.Next() {
		var m models.MarketInfo
		if err := rows.Scan(&m.Market, &m.County); err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markets: %w", err)
	}
	return markets, nil
}

func scanPriceRecords(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]models.PriceRecord, error) {
	var records []models.PriceRecord
	for rows.Next() {
		var rec models.PriceRecord
		if err := rows.Scan(&rec.Date, &rec.Commodity, &rec.Classification, &rec.County, &rec.Market, &rec.Wholesale, &rec.Retail); err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price records: %w", err)
	}
	return records, nil
}
