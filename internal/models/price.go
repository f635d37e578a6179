package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one observed market price row. Identity is
// (date, commodity, market, county); classification is carried along but
// never grouped on. Records are immutable once ingested.
type PriceRecord struct {
	Date           time.Time           `json:"date" db:"date"`
	Commodity      string              `json:"commodity" db:"commodity"`
	Classification string              `json:"classification" db:"classification"`
	County         string              `json:"county" db:"county"`
	Market         string              `json:"market" db:"market"`
	Wholesale      decimal.NullDecimal `json:"wholesale_unit_price" db:"wholesale_unit_price"`
	Retail         decimal.NullDecimal `json:"retail_unit_price" db:"retail_unit_price"`
}

// GroupKey identifies a (commodity, market, county) series, the unit of
// rolling-window computation and forecasting.
type GroupKey struct {
	Commodity string `json:"commodity"`
	Market    string `json:"market"`
	County    string `json:"county"`
}

// ForecastRecord is one predicted price for a group on a single day.
type ForecastRecord struct {
	Date           time.Time       `json:"date" db:"date"`
	Commodity      string          `json:"commodity" db:"commodity"`
	Classification string          `json:"classification" db:"classification"`
	Market         string          `json:"market" db:"market"`
	County         string          `json:"county" db:"county"`
	Wholesale      decimal.Decimal `json:"wholesale_price" db:"wholesale_price"`
	Retail         decimal.Decimal `json:"retail_price" db:"retail_price"`
	Currency       string          `json:"currency" db:"currency"`
	ModelVersion   string          `json:"model_version" db:"model_version"`
}

// MarketInfo is a distinct market/county pairing for the dashboard.
type MarketInfo struct {
	Market string `json:"market"`
	County string `json:"county"`
}

// PredictionRequest is the caller-facing request shape for /predict.
type PredictionRequest struct {
	Commodity string `json:"commodity" binding:"required"`
	Market    string `json:"market" binding:"required"`
	County    string `json:"county" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Days      int    `json:"days"`
}
