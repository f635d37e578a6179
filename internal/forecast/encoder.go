package forecast

import (
	"fmt"
	"sort"

	"github.com/maliyaleo/market-api/internal/models"
	"github.com/sirupsen/logrus"
)

// EncoderState is the fitted one-hot mapping from raw category value to
// output position. It is created once at training time, persisted with the
// models, and treated as read-only thereafter. Values unseen during fit
// encode as an all-zero block for that column, never an error.
type EncoderState struct {
	// Columns is the categorical column order used at fit time.
	Columns []string `json:"columns"`
	// Categories holds the sorted distinct values observed per column.
	Categories map[string][]string `json:"categories"`

	positions map[string]map[string]int
	offsets   map[string]int
	width     int
}

// FitEncoder enumerates every distinct value per categorical column across
// the given records and assigns each a stable output position: columns in
// the given order, values sorted within each column.
func FitEncoder(records []models.PriceRecord, columns []string) *EncoderState {
	cats := make(map[string][]string, len(columns))
	for _, col := range columns {
		seen := make(map[string]struct{})
		for _, r := range records {
			seen[categoricalValue(r, col)] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		cats[col] = values
	}

	enc := &EncoderState{Columns: columns, Categories: cats}
	enc.buildIndex()
	return enc
}

// FeatureNames returns the deterministic output column names in encoding
// order, one "<column>_<value>" entry per known category.
func (e *EncoderState) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, col := range e.Columns {
		for _, v := range e.Categories[col] {
			names = append(names, fmt.Sprintf("%s_%s", col, v))
		}
	}
	return names
}

// Width returns the total encoded vector length.
func (e *EncoderState) Width() int {
	e.ensureIndex()
	return e.width
}

// Transform one-hot encodes records against the fitted state. The output
// row width and column order are identical across calls and process
// restarts as long as the same EncoderState is reused.
func (e *EncoderState) Transform(records []models.PriceRecord) [][]float64 {
	rows := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = e.EncodeRecord(r)
	}
	return rows
}

// EncodeRecord encodes a single record. Unknown category values leave their
// column block at zero and log a warning; they never abort the encode.
func (e *EncoderState) EncodeRecord(r models.PriceRecord) []float64 {
	e.ensureIndex()
	out := make([]float64, e.width)
	for _, col := range e.Columns {
		value := categoricalValue(r, col)
		pos, ok := e.positions[col][value]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"column": col,
				"value":  value,
			}).Warn("Unknown category, encoding as zero vector")
			continue
		}
		out[e.offsets[col]+pos] = 1
	}
	return out
}

func (e *EncoderState) ensureIndex() {
	if e.positions == nil {
		e.buildIndex()
	}
}

// buildIndex derives the position lookup tables from the serialized form.
func (e *EncoderState) buildIndex() {
	e.positions = make(map[string]map[string]int, len(e.Columns))
	e.offsets = make(map[string]int, len(e.Columns))
	offset := 0
	for _, col := range e.Columns {
		values := e.Categories[col]
		idx := make(map[string]int, len(values))
		for i, v := range values {
			idx[v] = i
		}
		e.positions[col] = idx
		e.offsets[col] = offset
		offset += len(values)
	}
	e.width = offset
}

func categoricalValue(r models.PriceRecord, column string) string {
	switch column {
	case ColCommodity:
		return r.Commodity
	case ColClassification:
		return r.Classification
	case ColCounty:
		return r.County
	case ColMarket:
		return r.Market
	}
	return ""
}
