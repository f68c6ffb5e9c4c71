package aggregate

import (
	"sort"

	"github.com/lox/evdash/internal/models"
)

// YearCount is the number of records for one model year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Growth is the year-over-year change for one year. Rate is nil for the first
// year and whenever the previous year's count is zero.
type Growth struct {
	Year  int      `json:"year"`
	Count int      `json:"count"`
	Rate  *float64 `json:"rate"`
}

// YearlyCounts counts records per model year, ascending by year.
func YearlyCounts(v models.View) []YearCount {
	byYear := make(map[int]int)
	for _, r := range v.Records {
		byYear[r.ModelYear]++
	}
	counts := make([]YearCount, 0, len(byYear))
	for year, n := range byYear {
		counts = append(counts, YearCount{Year: year, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Year < counts[j].Year
	})
	return counts
}

// GrowthRates computes (count[i] - count[i-1]) / count[i-1] * 100 over counts,
// which must already be ordered by year ascending.
func GrowthRates(counts []YearCount) []Growth {
	out := make([]Growth, len(counts))
	for i, c := range counts {
		out[i] = Growth{Year: c.Year, Count: c.Count}
		if i == 0 {
			continue
		}
		prev := counts[i-1].Count
		if prev == 0 {
			continue
		}
		rate := float64(c.Count-prev) / float64(prev) * 100
		out[i].Rate = &rate
	}
	return out
}

// YearMakeCount is the number of records of one make in one model year.
type YearMakeCount struct {
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Count int    `json:"count"`
}

// TrendByTopMakes counts records per year for the n most common makes.
// Rows are ordered by year, then by make rank.
func TrendByTopMakes(v models.View, n int) []YearMakeCount {
	top := TopN(ValueCounts(v, FieldMake), n)
	rank := make(map[string]int, len(top))
	for i, c := range top {
		rank[c.Value] = i
	}

	type key struct {
		year int
		make string
	}
	counts := make(map[key]int)
	for _, r := range v.Records {
		if _, ok := rank[r.Make]; !ok {
			continue
		}
		counts[key{r.ModelYear, r.Make}]++
	}

	out := make([]YearMakeCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, YearMakeCount{Year: k.year, Make: k.make, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return rank[out[i].Make] < rank[out[j].Make]
	})
	return out
}
