package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/maliyaleo/market-api/internal/models"
)

// Categorical column identifiers, in the fixed encoding order.
const (
	ColCommodity      = "commodity"
	ColClassification = "classification"
	ColCounty         = "county"
	ColMarket         = "market"
)

// Numeric feature column names. Their order leads the feature schema; the
// one-hot block follows.
const (
	ColWholesaleMA7  = "wholesale_ma7"
	ColRetailMA7     = "retail_ma7"
	ColWholesaleMA30 = "wholesale_ma30"
	ColRetailMA30    = "retail_ma30"
	ColMonth         = "month"
	ColWeekOfYear    = "week_of_year"
	ColDayOfWeek     = "day_of_week"
)

// CategoricalColumns is the set of context columns one-hot encoded into the
// feature vector.
var CategoricalColumns = []string{ColCommodity, ColClassification, ColCounty, ColMarket}

var numericColumns = []string{
	ColWholesaleMA7, ColRetailMA7, ColWholesaleMA30, ColRetailMA30,
	ColMonth, ColWeekOfYear, ColDayOfWeek,
}

// FeatureSchema is the fixed, ordered list of feature column names agreed
// between training and inference. Any mismatch between the two invalidates
// predictions, so the schema is persisted with the models and reused
// verbatim.
type FeatureSchema []string

// Index returns the position of a column name, or -1 when absent.
func (s FeatureSchema) Index(name string) int {
	for i, col := range s {
		if col == name {
			return i
		}
	}
	return -1
}

// GroupMeta carries the static context of one group, emitted alongside its
// feature snapshot.
type GroupMeta struct {
	Commodity      string `json:"commodity"`
	Classification string `json:"classification"`
	Market         string `json:"market"`
	County         string `json:"county"`
}

// TrainingSet is the output of the feature builder in training mode: one
// row per retained record, with log1p-transformed prices as targets.
type TrainingSet struct {
	Schema       FeatureSchema
	Features     [][]float64
	LogWholesale []float64
	LogRetail    []float64
}

// Snapshot is the latest feature vector of one group, reindexed to the
// training-time schema and ready for forecasting.
type Snapshot struct {
	Meta     GroupMeta
	Features []float64
}

// featureRow is one record with its engineered features attached.
type featureRow struct {
	rec       models.PriceRecord
	wholesale float64
	retail    float64
	values    map[string]float64
}

// BuildTrainingSet engineers features over the full history and fits the
// encoder. Rows missing either price are dropped first; an empty input
// yields an empty set, not an error (the trainer decides whether that is
// fatal).
func BuildTrainingSet(records []models.PriceRecord) (*TrainingSet, *EncoderState) {
	rows := engineerRows(records)

	retained := make([]models.PriceRecord, len(rows))
	for i, row := range rows {
		retained[i] = row.rec
	}
	encoder := FitEncoder(retained, CategoricalColumns)

	schema := make(FeatureSchema, 0, len(numericColumns)+encoder.Width())
	schema = append(schema, numericColumns...)
	schema = append(schema, encoder.FeatureNames()...)

	ts := &TrainingSet{
		Schema:       schema,
		Features:     make([][]float64, len(rows)),
		LogWholesale: make([]float64, len(rows)),
		LogRetail:    make([]float64, len(rows)),
	}
	for i, row := range rows {
		vec := make([]float64, 0, len(schema))
		for _, col := range numericColumns {
			vec = append(vec, row.values[col])
		}
		vec = append(vec, encoder.EncodeRecord(row.rec)...)
		ts.Features[i] = vec
		ts.LogWholesale[i] = math.Log1p(row.wholesale)
		ts.LogRetail[i] = math.Log1p(row.retail)
	}
	return ts, encoder
}

// BuildSnapshots engineers features over a recent window and keeps only the
// most recent row per group, encoded against the training-time encoder and
// reindexed to the stored schema with zero fill for absent columns. Groups
// with no surviving rows simply produce no snapshot.
func BuildSnapshots(records []models.PriceRecord, encoder *EncoderState, schema FeatureSchema) ([]Snapshot, error) {
	for _, col := range numericColumns {
		if schema.Index(col) < 0 {
			return nil, NewSchemaMismatchErrorf("stored schema is missing column %q", col)
		}
	}

	rows := engineerRows(records)

	// Last row per group wins; rows are ordered by group then date, so a
	// simple overwrite keeps the most recent.
	latest := make(map[models.GroupKey]featureRow)
	order := make([]models.GroupKey, 0)
	for _, row := range rows {
		key := groupKeyOf(row.rec)
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = row
	}

	encoded := make(map[string]int, len(schema))
	for i, col := range schema {
		encoded[col] = i
	}
	encoderNames := encoder.FeatureNames()

	snapshots := make([]Snapshot, 0, len(order))
	for _, key := range order {
		row := latest[key]
		vec := make([]float64, len(schema))
		for _, col := range numericColumns {
			vec[encoded[col]] = row.values[col]
		}
		oneHot := encoder.EncodeRecord(row.rec)
		for i, name := range encoderNames {
			if pos, ok := encoded[name]; ok {
				vec[pos] = oneHot[i]
			}
			// Columns the stored schema does not know are dropped, the
			// unseen-category counterpart of zero fill.
		}
		snapshots = append(snapshots, Snapshot{
			Meta: GroupMeta{
				Commodity:      row.rec.Commodity,
				Classification: row.rec.Classification,
				Market:         row.rec.Market,
				County:         row.rec.County,
			},
			Features: vec,
		})
	}
	return snapshots, nil
}

// CalendarFeatures derives the three date-dependent fields for a day:
// month, ISO week of year and day of week with Monday as 0.
func CalendarFeatures(d time.Time) (month, week, dayOfWeek float64) {
	_, isoWeek := d.ISOWeek()
	return float64(d.Month()), float64(isoWeek), float64((int(d.Weekday()) + 6) % 7)
}

// engineerRows drops rows missing either price, partitions by group, sorts
// each group by date (stable, ties keep ingest order) and computes the
// trailing rolling averages and calendar fields. Output rows are ordered by
// group key, then date.
func engineerRows(records []models.PriceRecord) []featureRow {
	groups := make(map[models.GroupKey][]featureRow)
	for _, rec := range records {
		if !rec.Wholesale.Valid || !rec.Retail.Valid {
			continue
		}
		key := groupKeyOf(rec)
		w, _ := rec.Wholesale.Decimal.Float64()
		r, _ := rec.Retail.Decimal.Float64()
		groups[key] = append(groups[key], featureRow{rec: rec, wholesale: w, retail: r})
	}

	keys := make([]models.GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Commodity != keys[j].Commodity {
			return keys[i].Commodity < keys[j].Commodity
		}
		if keys[i].Market != keys[j].Market {
			return keys[i].Market < keys[j].Market
		}
		return keys[i].County < keys[j].County
	})

	out := make([]featureRow, 0, len(records))
	for _, key := range keys {
		rows := groups[key]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].rec.Date.Before(rows[j].rec.Date)
		})

		wholesale := make([]float64, len(rows))
		retail := make([]float64, len(rows))
		for i, row := range rows {
			wholesale[i] = row.wholesale
			retail[i] = row.retail
		}
		ma7w := trailingMean(wholesale, 7)
		ma7r := trailingMean(retail, 7)
		ma30w := trailingMean(wholesale, 30)
		ma30r := trailingMean(retail, 30)

		for i := range rows {
			month, week, dow := CalendarFeatures(rows[i].rec.Date)
			rows[i].values = map[string]float64{
				ColWholesaleMA7:  ma7w[i],
				ColRetailMA7:     ma7r[i],
				ColWholesaleMA30: ma30w[i],
				ColRetailMA30:    ma30r[i],
				ColMonth:         month,
				ColWeekOfYear:    week,
				ColDayOfWeek:     dow,
			}
			out = append(out, rows[i])
		}
	}
	return out
}

// trailingMean computes the mean of up to the last window values including
// the current one. Partial windows at the series start use whatever is
// available, so the first element is always its own value.
func trailingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := window
		if i+1 < window {
			n = i + 1
		} else if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(n)
	}
	return out
}

func groupKeyOf(r models.PriceRecord) models.GroupKey {
	return models.GroupKey{Commodity: r.Commodity, Market: r.Market, County: r.County}
}
