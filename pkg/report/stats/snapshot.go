package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"github.com/autoatlas/atlas-reporter/pkg/report/dataset"
)

// Snapshot is an immutable, column-oriented view of one dataset load: one
// value map per indicator plus a display-name map, all keyed by record ID.
// A record may be present for some indicators and absent for others. The
// identifier universe is the name map; per-indicator statistics only ever
// range over records holding a value for that indicator.
//
// Snapshots are safe for concurrent readers and are never mutated after Load
// returns; re-loading produces a new Snapshot rather than updating one in
// place.
type Snapshot struct {
	source     string
	idField    string
	nameField  string
	indicators []string

	ids     []string                      // record IDs in dataset iteration order
	names   map[string]string             // id -> display name
	values  map[string]map[string]float64 // indicator -> id -> value
	dropped map[string][]string           // indicator -> ids whose value failed coercion
}

// Load validates the configured fields against the dataset and reads every
// record in one pass. Values that fail numeric coercion (nil, empty, or
// non-numeric) are omitted from that indicator's map and recorded as dropped;
// the record itself still participates through its other indicators.
func Load(ds dataset.Dataset, idField, nameField string, indicators []string) (*Snapshot, error) {
	if ds == nil || !ds.IsValid() {
		return nil, ErrInvalidDataset
	}

	available := ds.FieldNames()
	fieldSet := make(map[string]bool, len(available))
	for _, f := range available {
		fieldSet[f] = true
	}
	required := append([]string{idField, nameField}, indicators...)
	for _, f := range required {
		if !fieldSet[f] {
			sorted := append([]string(nil), available...)
			sort.Strings(sorted)
			return nil, fmt.Errorf("%w: %q in dataset %q (available: %v)",
				ErrFieldNotFound, f, ds.Name(), sorted)
		}
	}

	s := &Snapshot{
		source:     ds.Name(),
		idField:    idField,
		nameField:  nameField,
		indicators: append([]string(nil), indicators...),
		names:      make(map[string]string),
		values:     make(map[string]map[string]float64, len(indicators)),
		dropped:    make(map[string][]string, len(indicators)),
	}
	for _, ind := range indicators {
		s.values[ind] = make(map[string]float64)
	}

	err := ds.Each(func(r dataset.Record) error {
		id := stringify(r.Values[idField])
		if _, seen := s.names[id]; !seen {
			s.ids = append(s.ids, id)
		}
		s.names[id] = stringify(r.Values[nameField])
		for _, ind := range indicators {
			val, outcome := Coerce(r.Values[ind])
			if outcome == CoercionOK {
				s.values[ind][id] = val
			} else {
				s.dropped[ind] = append(s.dropped[ind], id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %w", ErrInvalidDataset, ds.Name(), err)
	}
	return s, nil
}

// Source returns the dataset name the snapshot was loaded from.
func (s *Snapshot) Source() string { return s.source }

// Indicators returns the loaded indicator field names in load order.
func (s *Snapshot) Indicators() []string { return append([]string(nil), s.indicators...) }

// RecordIDs returns every loaded record ID in dataset iteration order. This
// order defines tie-breaks for rankings and the "first record" for previews.
func (s *Snapshot) RecordIDs() []string { return append([]string(nil), s.ids...) }

// Len returns the total number of loaded records.
func (s *Snapshot) Len() int { return len(s.ids) }

// DisplayName returns the display name for a record, falling back to the ID
// itself for unknown records.
func (s *Snapshot) DisplayName(id string) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return id
}

// Dropped returns the record IDs whose value for the given indicator failed
// numeric coercion during load.
func (s *Snapshot) Dropped(field string) []string {
	return append([]string(nil), s.dropped[field]...)
}

// ComputeStats aggregates one indicator across all records holding a value
// for it. A non-positive numBins selects DefaultHistogramBins. An indicator
// with zero values yields a zero-valued FieldStats with empty histogram
// slices, so callers need no special casing.
func (s *Snapshot) ComputeStats(field string, numBins int) (FieldStats, error) {
	vals, ok := s.values[field]
	if !ok {
		return FieldStats{}, fmt.Errorf("%w: %q (loaded: %v)", ErrUnknownField, field, s.indicators)
	}
	if numBins <= 0 {
		numBins = DefaultHistogramBins
	}

	fs := FieldStats{FieldName: field, Count: len(vals)}
	if fs.Count == 0 {
		return fs, nil
	}

	data := make([]float64, 0, len(vals))
	for _, id := range s.ids {
		if v, present := vals[id]; present {
			data = append(data, v)
		}
	}

	fs.Min, _ = mstats.Min(data)
	fs.Max, _ = mstats.Max(data)
	fs.Mean, _ = mstats.Mean(data)
	fs.Median, _ = mstats.Median(data)
	if fs.Count > 1 {
		fs.Std, _ = mstats.StandardDeviationSample(data)
	}

	// Nearest-rank percentile: the interpolating variant rejects small
	// samples (it errors whenever the interpolation rank falls below 1),
	// while nearest rank is defined for every count >= 1.
	fs.Percentiles = make(map[int]float64, len(PercentileKeys))
	for _, k := range PercentileKeys {
		p, err := mstats.PercentileNearestRank(data, float64(k))
		if err != nil {
			// Only possible on empty input, which is excluded above.
			return fs, fmt.Errorf("percentile %d for %q: %w", k, field, err)
		}
		fs.Percentiles[k] = p
	}

	fs.HistogramBins, fs.HistogramCounts = histogram(data, fs.Min, fs.Max, numBins)
	return fs, nil
}

// histogram buckets data into numBins equal-width bins spanning lo..hi. The
// final bin is closed on both sides so the maximum lands in it. A degenerate
// all-equal range is widened by ±0.5 to keep bins well defined.
func histogram(data []float64, lo, hi float64, numBins int) ([]float64, []int) {
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, numBins+1)
	floats.Span(edges, lo, hi)

	counts := make([]int, numBins)
	width := (hi - lo) / float64(numBins)
	for _, v := range data {
		idx := int((v - lo) / width)
		if idx >= numBins {
			idx = numBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return edges, counts
}

// ComputeRanking orders every record holding a value for the indicator by
// that value, ascending unless ascending is false, and assigns 1-indexed
// ranks by sorted position. The sort is stable: equal values keep dataset
// load order. O(n log n); recompute after re-loading, there is no
// incremental-update contract.
func (s *Snapshot) ComputeRanking(field string, ascending bool) ([]RankEntry, error) {
	vals, ok := s.values[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (loaded: %v)", ErrUnknownField, field, s.indicators)
	}

	entries := make([]RankEntry, 0, len(vals))
	for _, id := range s.ids {
		if v, present := vals[id]; present {
			entries = append(entries, RankEntry{RecordID: id, Name: s.DisplayName(id), Value: v})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Value < entries[j].Value
		}
		return entries[i].Value > entries[j].Value
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// FeatureContext positions one record within the distribution of one
// indicator: descending rank (rank 1 = highest value, always), deviation from
// the mean in sample-std units, and an inclusive non-interpolated percentile.
func (s *Snapshot) FeatureContext(recordID, field string) (FeatureContext, error) {
	vals, ok := s.values[field]
	if !ok {
		return FeatureContext{}, fmt.Errorf("%w: %q (loaded: %v)", ErrUnknownField, field, s.indicators)
	}
	value, ok := vals[recordID]
	if !ok {
		return FeatureContext{}, fmt.Errorf("%w: record %q, field %q", ErrUnknownRecord, recordID, field)
	}

	data := make([]float64, 0, len(vals))
	for _, id := range s.ids {
		if v, present := vals[id]; present {
			data = append(data, v)
		}
	}

	mean, _ := mstats.Mean(data)
	std := 1.0
	if len(data) > 1 {
		std, _ = mstats.StandardDeviationSample(data)
	}
	deviation := 0.0
	if std > 0 {
		deviation = (value - mean) / std
	}

	leq := 0
	for _, v := range data {
		if v <= value {
			leq++
		}
	}
	percentile := float64(leq) / float64(len(data)) * 100

	// Rank is always best-to-worst here, independent of the ascending flag
	// used by ComputeRanking callers.
	ranking, err := s.ComputeRanking(field, false)
	if err != nil {
		return FeatureContext{}, err
	}
	rank := len(ranking)
	for _, e := range ranking {
		if e.RecordID == recordID {
			rank = e.Rank
			break
		}
	}

	minVal, _ := mstats.Min(data)
	maxVal, _ := mstats.Max(data)

	return FeatureContext{
		RecordID:          recordID,
		Name:              s.DisplayName(recordID),
		Value:             value,
		Rank:              rank,
		TotalFeatures:     len(vals),
		DeviationFromMean: roundTo(deviation, 3),
		Percentile:        roundTo(percentile, 1),
		IsMax:             value == maxVal,
		IsMin:             value == minVal,
	}, nil
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// stringify renders a raw identifier or name value the way the loaders expect
// to see it again later: strings pass through, numbers keep a compact form.
func stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
