// Package stats is the statistical computation engine of the report core. It
// loads a dataset once into an immutable Snapshot and computes per-field
// aggregate statistics, full rankings, and per-record contextual positions
// over it. Pure computation: no I/O beyond the initial load.
package stats

import "errors"

var (
	// ErrInvalidDataset indicates a nil or invalid dataset reference at load time.
	ErrInvalidDataset = errors.New("invalid or nil dataset")

	// ErrFieldNotFound indicates a configured field name that does not exist
	// among the dataset's fields. Returned by Load before any data is read.
	ErrFieldNotFound = errors.New("field not found in dataset")

	// ErrUnknownField indicates a query for an indicator that was never
	// loaded. A caller error: fail loudly rather than return defaults.
	ErrUnknownField = errors.New("field not loaded")

	// ErrUnknownRecord indicates a query for a record that holds no value for
	// the requested indicator.
	ErrUnknownRecord = errors.New("record has no value for field")
)

// PercentileKeys are the percentile levels computed for every FieldStats.
var PercentileKeys = []int{5, 10, 25, 50, 75, 90, 95}

// DefaultHistogramBins is the bin count used when ComputeStats is called
// with a non-positive bin count.
const DefaultHistogramBins = 20

// FieldStats aggregates one indicator field across all records holding a
// value for it. Immutable once computed.
type FieldStats struct {
	FieldName string `json:"fieldName"`
	// Count is the number of records with a usable numeric value.
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	// Std is the sample (N−1) standard deviation; 0 when Count <= 1.
	Std         float64         `json:"std"`
	Percentiles map[int]float64 `json:"percentiles,omitempty"`
	// HistogramBins holds len(HistogramCounts)+1 equal-width bin edges
	// spanning Min..Max. Empty when Count is 0.
	HistogramBins   []float64 `json:"histogramBins,omitempty"`
	HistogramCounts []int     `json:"histogramCounts,omitempty"`
}

// RankEntry is a single position in a full ordering of all records holding a
// value for one indicator. Rank is 1-indexed by sorted position; ties keep
// load order.
type RankEntry struct {
	RecordID string  `json:"recordId"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Rank     int     `json:"rank"`
}

// FeatureContext positions one record within the full distribution of one
// indicator. Rank here is always computed on a descending ordering (rank 1 =
// highest value) regardless of any ordering convention used elsewhere:
// rankings shown to readers run best-to-worst.
type FeatureContext struct {
	RecordID string  `json:"recordId"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Rank     int     `json:"rank"`
	// TotalFeatures is the count of records holding a value for the indicator.
	TotalFeatures int `json:"totalFeatures"`
	// DeviationFromMean is expressed in sample-std units, rounded to 3
	// decimals; 0 when the std is 0.
	DeviationFromMean float64 `json:"deviationFromMean"`
	// Percentile is count(values <= value) / total * 100, rounded to 1
	// decimal. Inclusive and non-interpolated: tied values share a
	// percentile.
	Percentile float64 `json:"percentile"`
	IsMax      bool    `json:"isMax"`
	IsMin      bool    `json:"isMin"`
}
