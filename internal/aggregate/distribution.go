package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lox/evdash/internal/models"
)

// NumericField is a numeric record attribute where 0 means "unknown".
type NumericField string

const (
	RangeField NumericField = "electric_range"
	PriceField NumericField = "base_msrp"
)

// Value extracts the raw value, sentinel included.
func (n NumericField) Value(r models.Record) float64 {
	switch n {
	case RangeField:
		return r.ElectricRange
	case PriceField:
		return r.BaseMSRP
	default:
		return 0
	}
}

// Available reports whether the dataset carries the column behind n.
func (n NumericField) Available(caps models.Capabilities) bool {
	switch n {
	case RangeField:
		return caps.ElectricRange
	case PriceField:
		return caps.BaseMSRP
	default:
		return false
	}
}

// Valid reports whether a value carries data. Zero is the unknown sentinel.
// NOTE: a genuine zero is indistinguishable from missing data in the source.
func Valid(value float64) bool {
	return value > 0
}

// Status describes whether a numeric aggregate could be computed.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"
	StatusUnavailable Status = "unavailable"
)

// Bin is one equal-width histogram bucket. Lower is inclusive; Upper is
// exclusive except for the last bin.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Distribution summarises the valid values of a numeric field.
// Only Status and Field are meaningful unless Status is StatusOK.
type Distribution struct {
	Field    NumericField `json:"field"`
	Status   Status       `json:"status"`
	Count    int          `json:"count"`
	Excluded int          `json:"excluded"`
	Mean     float64      `json:"mean"`
	Min      float64      `json:"min"`
	Q1       float64      `json:"q1"`
	Median   float64      `json:"median"`
	Q3       float64      `json:"q3"`
	Max      float64      `json:"max"`
	Bins     []Bin        `json:"bins,omitempty"`
}

// OK reports whether the distribution holds data.
func (d Distribution) OK() bool {
	return d.Status == StatusOK
}

// ValidValues returns the non-sentinel values of n in view order.
func ValidValues(v models.View, n NumericField) []float64 {
	var values []float64
	for _, r := range v.Records {
		if x := n.Value(r); Valid(x) {
			values = append(values, x)
		}
	}
	return values
}

// Mean returns the mean of the valid values of n, or false when there are none.
func Mean(v models.View, n NumericField) (float64, bool) {
	if !n.Available(v.Caps) {
		return 0, false
	}
	values := ValidValues(v, n)
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// Summarize builds a distribution of n over the view, binned into bins buckets.
func Summarize(v models.View, n NumericField, bins int) Distribution {
	d := Distribution{Field: n}
	if !n.Available(v.Caps) {
		d.Status = StatusUnavailable
		return d
	}
	values := ValidValues(v, n)
	d.Excluded = v.Len() - len(values)
	return summarizeValues(d, values, bins)
}

func summarizeValues(d Distribution, values []float64, bins int) Distribution {
	if len(values) == 0 {
		d.Status = StatusNoData
		return d
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	d.Status = StatusOK
	d.Count = len(sorted)
	d.Mean = stat.Mean(sorted, nil)
	d.Min = floats.Min(sorted)
	d.Max = floats.Max(sorted)
	d.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	d.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	d.Bins = Histogram(sorted, bins)
	return d
}

// Histogram splits values into bins equal-width buckets between their min and max.
// When every value is identical a single bucket holds them all.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, x := range values {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// GroupDistribution is a distribution of a numeric field within one group.
type GroupDistribution struct {
	Group        string `json:"group"`
	Distribution `json:"distribution"`
}

// SummarizeByGroup summarises n per value of field. Groups are limited to
// restrict when given (in that order), otherwise ordered by first appearance.
// Groups without any valid value are omitted.
func SummarizeByGroup(v models.View, field Field, n NumericField, restrict []string) []GroupDistribution {
	if !n.Available(v.Caps) || !field.Available(v.Caps) {
		return nil
	}

	var order []string
	values := make(map[string][]float64)
	for _, r := range v.Records {
		x := n.Value(r)
		if !Valid(x) {
			continue
		}
		g := field.Value(r)
		if _, ok := values[g]; !ok {
			order = append(order, g)
		}
		values[g] = append(values[g], x)
	}
	if restrict != nil {
		order = restrict
	}

	var out []GroupDistribution
	for _, g := range order {
		vals, ok := values[g]
		if !ok {
			continue
		}
		out = append(out, GroupDistribution{
			Group:        g,
			Distribution: summarizeValues(Distribution{Field: n}, vals, 0),
		})
	}
	return out
}

// GroupMean is the mean of a numeric field within one group.
type GroupMean struct {
	Group string  `json:"group"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// MeanByGroup averages the valid values of n per value of field, highest mean
// first. Equal means keep first-appearance order. limit <= 0 keeps all groups.
func MeanByGroup(v models.View, field Field, n NumericField, limit int) []GroupMean {
	if !n.Available(v.Caps) || !field.Available(v.Caps) {
		return nil
	}

	index := make(map[string]int)
	var sums []float64
	var means []GroupMean
	for _, r := range v.Records {
		x := n.Value(r)
		if !Valid(x) {
			continue
		}
		g := field.Value(r)
		i, ok := index[g]
		if !ok {
			i = len(means)
			index[g] = i
			means = append(means, GroupMean{Group: g})
			sums = append(sums, 0)
		}
		sums[i] += x
		means[i].Count++
	}
	for i := range means {
		means[i].Mean = sums[i] / float64(means[i].Count)
	}

	sort.SliceStable(means, func(i, j int) bool {
		return means[i].Mean > means[j].Mean
	})
	if limit > 0 && len(means) > limit {
		means = means[:limit]
	}
	return means
}

// Point pairs the range and price of one record for a scatter view.
type Point struct {
	Range float64 `json:"range"`
	MSRP  float64 `json:"msrp"`
	Make  string  `json:"make"`
	Model string  `json:"model"`
}

// PriceRangePoints returns records where both range and price are known.
func PriceRangePoints(v models.View) []Point {
	if !v.Caps.ElectricRange || !v.Caps.BaseMSRP {
		return nil
	}
	var points []Point
	for _, r := range v.Records {
		if !Valid(r.ElectricRange) || !Valid(r.BaseMSRP) {
			continue
		}
		points = append(points, Point{Range: r.ElectricRange, MSRP: r.BaseMSRP, Make: r.Make, Model: r.Model})
	}
	return points
}
