package aggregate

import (
	"github.com/lox/evdash/internal/models"
)

// Options sets the sizes of the truncated views built by Compute.
type Options struct {
	TopMakes           int `yaml:"top_makes"`
	ConcentrationMakes int `yaml:"concentration_makes"`
	TrendMakes         int `yaml:"trend_makes"`
	TopCities          int `yaml:"top_cities"`
	RangeMakes         int `yaml:"range_makes"`
	PriceMakes         int `yaml:"price_makes"`
	TopModels          int `yaml:"top_models"`
	HistogramBins      int `yaml:"histogram_bins"`
}

// DefaultOptions mirrors the sizes used by the dashboard charts.
func DefaultOptions() Options {
	return Options{
		TopMakes:           15,
		ConcentrationMakes: 10,
		TrendMakes:         5,
		TopCities:          20,
		RangeMakes:         10,
		PriceMakes:         15,
		TopModels:          15,
		HistogramBins:      30,
	}
}

// KeyMetrics are the headline numbers for a view.
type KeyMetrics struct {
	Total        int      `json:"total"`
	DatasetTotal int      `json:"dataset_total"`
	Delta        *int     `json:"delta"`
	UniqueMakes  int      `json:"unique_makes"`
	UniqueModels int      `json:"unique_models"`
	UniqueStates int      `json:"unique_states"`
	AverageRange *float64 `json:"average_range"`
	FirstYear    *int     `json:"first_year"`
	LastYear     *int     `json:"last_year"`
	YearSpan     *int     `json:"year_span"`
}

// KeyMetricsOf computes the headline numbers. Delta is set only when the view
// is smaller than the dataset; averages and years are nil without data.
func KeyMetricsOf(v models.View) KeyMetrics {
	m := KeyMetrics{
		Total:        v.Len(),
		DatasetTotal: v.DatasetSize,
		UniqueMakes:  Distinct(v, FieldMake),
		UniqueModels: Distinct(v, FieldModel),
		UniqueStates: Distinct(v, FieldState),
	}
	if v.Len() != v.DatasetSize {
		delta := v.Len() - v.DatasetSize
		m.Delta = &delta
	}
	if avg, ok := Mean(v, RangeField); ok {
		m.AverageRange = &avg
	}
	if v.Len() > 0 {
		first, last := v.Records[0].ModelYear, v.Records[0].ModelYear
		for _, r := range v.Records[1:] {
			first = min(first, r.ModelYear)
			last = max(last, r.ModelYear)
		}
		span := last - first + 1
		m.FirstYear, m.LastYear, m.YearSpan = &first, &last, &span
	}
	return m
}

// Result bundles every derived view of one filtered view.
type Result struct {
	Metrics       KeyMetrics          `json:"metrics"`
	MakeCounts    []Count             `json:"make_counts"`
	TopMakes      []Count             `json:"top_makes"`
	Concentration []Count             `json:"concentration"`
	EVTypeCounts  []Count             `json:"ev_type_counts"`
	CAFVCounts    []Count             `json:"cafv_counts"`
	StateCounts   []Count             `json:"state_counts"`
	TopCities     []Count             `json:"top_cities"`
	YearlyCounts  []YearCount         `json:"yearly_counts"`
	Growth        []Growth            `json:"growth"`
	MakeTrend     []YearMakeCount     `json:"make_trend"`
	Range         Distribution        `json:"range"`
	RangeByType   []GroupDistribution `json:"range_by_type"`
	RangeByMake   []GroupDistribution `json:"range_by_make"`
	Price         Distribution        `json:"price"`
	PriceByMake   []GroupMean         `json:"price_by_make"`
	PriceVsRange  []Point             `json:"price_vs_range"`
	TopModels     []PairCount         `json:"top_models"`
	Unavailable   []string            `json:"unavailable,omitempty"`
}

// Compute runs every aggregate once over the view.
func Compute(v models.View, opts Options) Result {
	makes := ValueCounts(v, FieldMake)
	yearly := YearlyCounts(v)

	r := Result{
		Metrics:       KeyMetricsOf(v),
		MakeCounts:    makes,
		TopMakes:      TopN(makes, opts.TopMakes),
		Concentration: TopN(makes, opts.ConcentrationMakes),
		EVTypeCounts:  ValueCounts(v, FieldEVType),
		CAFVCounts:    ValueCounts(v, FieldCAFV),
		StateCounts:   ValueCounts(v, FieldState),
		TopCities:     TopN(ValueCounts(v, FieldCity), opts.TopCities),
		YearlyCounts:  yearly,
		Growth:        GrowthRates(yearly),
		MakeTrend:     TrendByTopMakes(v, opts.TrendMakes),
		Range:         Summarize(v, RangeField, opts.HistogramBins),
		RangeByType:   SummarizeByGroup(v, FieldEVType, RangeField, nil),
		Price:         Summarize(v, PriceField, opts.HistogramBins),
		PriceByMake:   MeanByGroup(v, FieldMake, PriceField, opts.PriceMakes),
		PriceVsRange:  PriceRangePoints(v),
		TopModels:     topPairs(GroupCounts(v, FieldMake, FieldModel), opts.TopModels),
	}

	rangeMakes := TopN(makes, opts.RangeMakes)
	restrict := make([]string, len(rangeMakes))
	for i, c := range rangeMakes {
		restrict[i] = c.Value
	}
	r.RangeByMake = SummarizeByGroup(v, FieldMake, RangeField, restrict)

	if !v.Caps.City {
		r.Unavailable = append(r.Unavailable, models.ColCity)
	}
	if !v.Caps.CAFV {
		r.Unavailable = append(r.Unavailable, models.ColCAFVEligibility)
	}
	if !v.Caps.ElectricRange {
		r.Unavailable = append(r.Unavailable, models.ColElectricRange)
	}
	if !v.Caps.BaseMSRP {
		r.Unavailable = append(r.Unavailable, models.ColBaseMSRP)
	}
	return r
}

func topPairs(pairs []PairCount, n int) []PairCount {
	if n <= 0 || len(pairs) <= n {
		return pairs
	}
	return pairs[:n]
}
