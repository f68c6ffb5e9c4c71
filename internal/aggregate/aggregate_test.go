package aggregate

import (
	"math"
	"slices"
	"testing"

	"github.com/lox/evdash/internal/models"
)

func rec(year int, state, mk, evType string, rng float64) models.Record {
	return models.Record{ModelYear: year, State: state, Make: mk, Model: mk + " M", EVType: evType, ElectricRange: rng}
}

func view(caps models.Capabilities, records ...models.Record) models.View {
	return models.NewView(records, caps)
}

// The filtered view from the end-to-end scenario: the 2023 FORD is gone.
func scenarioView() models.View {
	return view(models.Capabilities{ElectricRange: true},
		rec(2022, "WA", "TESLA", "BEV", 250),
		rec(2022, "WA", "TESLA", "BEV", 300),
		rec(2021, "CA", "NISSAN", "BEV", 0),
		rec(2021, "CA", "TESLA", "BEV", 270),
	)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestValueCounts_Scenario(t *testing.T) {
	counts := ValueCounts(scenarioView(), FieldMake)
	want := []Count{{"TESLA", 3}, {"NISSAN", 1}}
	if !slices.Equal(counts, want) {
		t.Errorf("make counts = %v, want %v", counts, want)
	}
}

func TestValueCounts_TiesKeepFirstAppearance(t *testing.T) {
	v := view(models.AllCapabilities,
		rec(2020, "WA", "KIA", "BEV", 0),
		rec(2020, "WA", "BMW", "BEV", 0),
		rec(2020, "WA", "AUDI", "BEV", 0),
		rec(2020, "WA", "BMW", "BEV", 0),
		rec(2020, "WA", "AUDI", "BEV", 0),
		rec(2020, "WA", "KIA", "BEV", 0),
		rec(2020, "WA", "VOLVO", "BEV", 0),
	)
	counts := ValueCounts(v, FieldMake)
	want := []Count{{"KIA", 2}, {"BMW", 2}, {"AUDI", 2}, {"VOLVO", 1}}
	if !slices.Equal(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestValueCounts_Conservation(t *testing.T) {
	v := view(models.AllCapabilities,
		rec(2020, "WA", "KIA", "BEV", 0),
		rec(2021, "", "BMW", "PHEV", 0),
		rec(2022, "OR", "", "BEV", 0),
		rec(2022, "WA", "KIA", "BEV", 0),
	)
	for _, f := range []Field{FieldMake, FieldModel, FieldState, FieldEVType, FieldModelYear} {
		total := 0
		for _, c := range ValueCounts(v, f) {
			total += c.Count
		}
		if total != v.Len() {
			t.Errorf("%s: counts sum to %d, want %d", f, total, v.Len())
		}
	}
}

func TestValueCounts_Unavailable(t *testing.T) {
	v := view(models.Capabilities{}, rec(2020, "WA", "KIA", "BEV", 0))
	if got := ValueCounts(v, FieldCity); got != nil {
		t.Errorf("city counts without a city column = %v, want nil", got)
	}
	if got := ValueCounts(v, FieldCAFV); got != nil {
		t.Errorf("CAFV counts without a CAFV column = %v, want nil", got)
	}
}

func TestTopN(t *testing.T) {
	counts := []Count{{"A", 5}, {"B", 3}, {"C", 1}}
	tests := []struct {
		n    int
		want int
	}{
		{0, 3}, {-1, 3}, {2, 2}, {3, 3}, {10, 3},
	}
	for _, tt := range tests {
		if got := TopN(counts, tt.n); len(got) != tt.want {
			t.Errorf("TopN(%d) returned %d entries, want %d", tt.n, len(got), tt.want)
		}
	}

	if _, ok := Top(nil); ok {
		t.Error("Top of no counts should report false")
	}
}

func TestRank_Generic(t *testing.T) {
	ranked := Rank([]int{3, 1, 3, 2, 1, 3}, func(x int) int { return x }, 2)
	want := []Ranked[int]{{3, 3}, {1, 2}}
	if !slices.Equal(ranked, want) {
		t.Errorf("ranked = %v, want %v", ranked, want)
	}
}

func TestGroupCounts(t *testing.T) {
	v := view(models.AllCapabilities,
		models.Record{Make: "TESLA", Model: "MODEL 3"},
		models.Record{Make: "TESLA", Model: "MODEL Y"},
		models.Record{Make: "NISSAN", Model: "LEAF"},
		models.Record{Make: "TESLA", Model: "MODEL Y"},
	)
	pairs := GroupCounts(v, FieldMake, FieldModel)
	want := []PairCount{
		{"TESLA", "MODEL Y", 2},
		{"TESLA", "MODEL 3", 1},
		{"NISSAN", "LEAF", 1},
	}
	if !slices.Equal(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestDistinct(t *testing.T) {
	v := scenarioView()
	if got := Distinct(v, FieldMake); got != 2 {
		t.Errorf("distinct makes = %d, want 2", got)
	}
	if got := Distinct(v, FieldState); got != 2 {
		t.Errorf("distinct states = %d, want 2", got)
	}
}

func TestGrowthRates(t *testing.T) {
	tests := []struct {
		name   string
		counts []YearCount
		want   []*float64
	}{
		{
			name:   "rise then collapse",
			counts: []YearCount{{2020, 5}, {2021, 10}, {2022, 0}},
			want:   []*float64{nil, ptr(100), ptr(-100)},
		},
		{
			name:   "from zero",
			counts: []YearCount{{2020, 0}, {2021, 5}},
			want:   []*float64{nil, nil},
		},
		{
			name:   "single year",
			counts: []YearCount{{2020, 7}},
			want:   []*float64{nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthRates(tt.counts)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rates, want %d", len(got), len(tt.want))
			}
			for i, g := range got {
				switch {
				case tt.want[i] == nil && g.Rate != nil:
					t.Errorf("year %d: rate = %v, want absent", g.Year, *g.Rate)
				case tt.want[i] != nil && (g.Rate == nil || !approx(*g.Rate, *tt.want[i])):
					t.Errorf("year %d: rate = %v, want %v", g.Year, g.Rate, *tt.want[i])
				}
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestYearlyCounts_Ascending(t *testing.T) {
	counts := YearlyCounts(scenarioView())
	want := []YearCount{{2021, 2}, {2022, 2}}
	if !slices.Equal(counts, want) {
		t.Errorf("yearly = %v, want %v", counts, want)
	}
}

func TestTrendByTopMakes(t *testing.T) {
	v := view(models.AllCapabilities,
		rec(2021, "WA", "NISSAN", "BEV", 0),
		rec(2021, "WA", "TESLA", "BEV", 0),
		rec(2022, "WA", "TESLA", "BEV", 0),
		rec(2022, "WA", "TESLA", "BEV", 0),
		rec(2022, "WA", "KIA", "BEV", 0),
	)
	got := TrendByTopMakes(v, 2)
	want := []YearMakeCount{
		{2021, "TESLA", 1},
		{2021, "NISSAN", 1},
		{2022, "TESLA", 2},
	}
	if !slices.Equal(got, want) {
		t.Errorf("trend = %v, want %v", got, want)
	}
}

func TestMean_ExcludesSentinel(t *testing.T) {
	v := view(models.Capabilities{ElectricRange: true},
		rec(2020, "WA", "A", "BEV", 0),
		rec(2020, "WA", "A", "BEV", 100),
		rec(2020, "WA", "A", "BEV", 0),
		rec(2020, "WA", "A", "BEV", 200),
	)
	mean, ok := Mean(v, RangeField)
	if !ok || !approx(mean, 150) {
		t.Errorf("mean = %v, %v; want 150", mean, ok)
	}

	mean, ok = Mean(scenarioView(), RangeField)
	if !ok || math.Abs(mean-273.33) > 0.01 {
		t.Errorf("scenario mean = %v, want 273.33", mean)
	}
}

func TestSummarize_Statuses(t *testing.T) {
	zeros := view(models.Capabilities{ElectricRange: true},
		rec(2020, "WA", "A", "BEV", 0),
		rec(2020, "WA", "A", "BEV", 0),
	)
	d := Summarize(zeros, RangeField, 10)
	if d.Status != StatusNoData {
		t.Errorf("all-sentinel status = %s, want %s", d.Status, StatusNoData)
	}
	if d.Excluded != 2 {
		t.Errorf("excluded = %d, want 2", d.Excluded)
	}
	if _, ok := Mean(zeros, RangeField); ok {
		t.Error("mean of all-sentinel values should be absent")
	}

	d = Summarize(view(models.Capabilities{}), RangeField, 10)
	if d.Status != StatusUnavailable {
		t.Errorf("missing column status = %s, want %s", d.Status, StatusUnavailable)
	}

	d = Summarize(view(models.Capabilities{BaseMSRP: true}), PriceField, 10)
	if d.Status != StatusNoData {
		t.Errorf("empty view status = %s, want %s", d.Status, StatusNoData)
	}
}

func TestSummarize_Quartiles(t *testing.T) {
	var records []models.Record
	for _, x := range []float64{50, 0, 10, 40, 20, 30} {
		records = append(records, rec(2020, "WA", "A", "BEV", x))
	}
	d := Summarize(view(models.Capabilities{ElectricRange: true}, records...), RangeField, 4)

	if !d.OK() {
		t.Fatalf("status = %s", d.Status)
	}
	if d.Count != 5 || d.Excluded != 1 {
		t.Errorf("count/excluded = %d/%d, want 5/1", d.Count, d.Excluded)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"min", d.Min, 10}, {"q1", d.Q1, 20}, {"median", d.Median, 30},
		{"q3", d.Q3, 40}, {"max", d.Max, 50}, {"mean", d.Mean, 30},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	total := 0
	for _, b := range d.Bins {
		total += b.Count
	}
	if len(d.Bins) != 4 || total != 5 {
		t.Errorf("bins = %v", d.Bins)
	}
}

func TestHistogram(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		bins   int
		counts []int
	}{
		{"spread", []float64{1, 2, 3, 4}, 3, []int{1, 1, 2}},
		{"identical values", []float64{7, 7, 7}, 5, []int{3}},
		{"no values", nil, 5, nil},
		{"no bins", []float64{1, 2}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bins := Histogram(tt.values, tt.bins)
			var counts []int
			for _, b := range bins {
				counts = append(counts, b.Count)
			}
			if !slices.Equal(counts, tt.counts) {
				t.Errorf("counts = %v, want %v", counts, tt.counts)
			}
			if len(bins) > 0 && bins[len(bins)-1].Upper != tt.values[len(tt.values)-1] {
				t.Errorf("last bin upper = %v, want the max", bins[len(bins)-1].Upper)
			}
		})
	}
}

func TestSummarizeByGroup(t *testing.T) {
	v := view(models.Capabilities{ElectricRange: true},
		rec(2020, "WA", "TESLA", "BEV", 300),
		rec(2020, "WA", "FORD", "PHEV", 20),
		rec(2020, "WA", "NISSAN", "BEV", 0),
		rec(2020, "WA", "TESLA", "BEV", 250),
	)

	groups := SummarizeByGroup(v, FieldEVType, RangeField, nil)
	if len(groups) != 2 || groups[0].Group != "BEV" || groups[1].Group != "PHEV" {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Count != 2 || !approx(groups[0].Mean, 275) {
		t.Errorf("BEV summary = %+v", groups[0].Distribution)
	}

	groups = SummarizeByGroup(v, FieldMake, RangeField, []string{"NISSAN", "FORD", "TESLA"})
	var names []string
	for _, g := range groups {
		names = append(names, g.Group)
	}
	if !slices.Equal(names, []string{"FORD", "TESLA"}) {
		t.Errorf("restricted groups = %v, want FORD then TESLA (NISSAN has no data)", names)
	}
}

func TestMeanByGroup(t *testing.T) {
	v := view(models.Capabilities{BaseMSRP: true},
		models.Record{Make: "KIA", BaseMSRP: 40000},
		models.Record{Make: "BMW", BaseMSRP: 60000},
		models.Record{Make: "KIA", BaseMSRP: 0},
		models.Record{Make: "AUDI", BaseMSRP: 60000},
		models.Record{Make: "KIA", BaseMSRP: 50000},
	)
	got := MeanByGroup(v, FieldMake, PriceField, 2)
	want := []GroupMean{{"BMW", 60000, 1}, {"AUDI", 60000, 1}}
	if !slices.Equal(got, want) {
		t.Errorf("means = %v, want %v", got, want)
	}
}

func TestPriceRangePoints(t *testing.T) {
	v := view(models.Capabilities{ElectricRange: true, BaseMSRP: true},
		models.Record{Make: "A", ElectricRange: 100, BaseMSRP: 30000},
		models.Record{Make: "B", ElectricRange: 0, BaseMSRP: 30000},
		models.Record{Make: "C", ElectricRange: 200, BaseMSRP: 0},
	)
	points := PriceRangePoints(v)
	if len(points) != 1 || points[0].Make != "A" {
		t.Errorf("points = %+v", points)
	}
}

func TestKeyMetricsOf(t *testing.T) {
	v := scenarioView()
	v.DatasetSize = 5
	m := KeyMetricsOf(v)

	if m.Total != 4 || m.DatasetTotal != 5 {
		t.Errorf("total/dataset = %d/%d", m.Total, m.DatasetTotal)
	}
	if m.Delta == nil || *m.Delta != -1 {
		t.Errorf("delta = %v, want -1", m.Delta)
	}
	if m.FirstYear == nil || *m.FirstYear != 2021 || *m.LastYear != 2022 || *m.YearSpan != 2 {
		t.Errorf("years = %v..%v span %v", m.FirstYear, m.LastYear, m.YearSpan)
	}

	empty := KeyMetricsOf(view(models.AllCapabilities))
	if empty.AverageRange != nil || empty.FirstYear != nil || empty.Delta != nil {
		t.Errorf("empty view metrics = %+v", empty)
	}
}

func TestCompute(t *testing.T) {
	r := Compute(scenarioView(), DefaultOptions())

	if r.Metrics.Total != 4 {
		t.Errorf("total = %d", r.Metrics.Total)
	}
	if top, ok := Top(r.MakeCounts); !ok || top.Value != "TESLA" || top.Count != 3 {
		t.Errorf("top make = %+v", top)
	}
	if !r.Range.OK() || math.Abs(r.Range.Mean-273.33) > 0.01 {
		t.Errorf("range = %+v", r.Range)
	}
	if r.Price.Status != StatusUnavailable {
		t.Errorf("price status = %s, want unavailable", r.Price.Status)
	}
	want := []string{models.ColCity, models.ColCAFVEligibility, models.ColBaseMSRP}
	if !slices.Equal(r.Unavailable, want) {
		t.Errorf("unavailable = %v, want %v", r.Unavailable, want)
	}
	if r.TopCities != nil || r.CAFVCounts != nil || r.PriceByMake != nil {
		t.Error("views over missing columns should be empty")
	}
	if len(r.Growth) != 2 || r.Growth[0].Rate != nil || r.Growth[1].Rate == nil || *r.Growth[1].Rate != 0 {
		t.Errorf("growth = %+v", r.Growth)
	}
}
