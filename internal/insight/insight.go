package insight

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/lox/evdash/internal/aggregate"
)

// Key names one headline fact.
type Key string

const (
	MarketLeader     Key = "market_leader"
	DominantType     Key = "dominant_type"
	GeographicLeader Key = "geographic_leader"
	AverageRange     Key = "average_range"
)

// Keys lists every insight in display order.
var Keys = []Key{MarketLeader, AverageRange, DominantType, GeographicLeader}

// Fact is one headline fact. Share facts carry Value, Count and Percentage;
// AverageRange carries Amount.
type Fact struct {
	Value      string   `json:"value,omitempty"`
	Count      int      `json:"count,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
}

// Set maps insight keys to facts. A missing key means there is nothing to show.
type Set map[Key]Fact

// Get returns the fact for k.
func (s Set) Get(k Key) (Fact, bool) {
	f, ok := s[k]
	return f, ok
}

// Empty reports whether no insight could be derived.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Derive builds the headline facts from an aggregate result. With no filtered
// records every insight is absent.
func Derive(r aggregate.Result, filteredCount int) Set {
	set := make(Set)
	if filteredCount <= 0 {
		return set
	}

	share(set, MarketLeader, r.MakeCounts, filteredCount)
	share(set, DominantType, r.EVTypeCounts, filteredCount)
	share(set, GeographicLeader, r.StateCounts, filteredCount)

	if r.Range.OK() && !math.IsNaN(r.Range.Mean) {
		mean := r.Range.Mean
		set[AverageRange] = Fact{Amount: &mean}
	}
	return set
}

func share(set Set, key Key, counts []aggregate.Count, total int) {
	top, ok := aggregate.Top(counts)
	if !ok {
		return
	}
	pct := float64(top.Count) / float64(total) * 100
	set[key] = Fact{Value: top.Value, Count: top.Count, Percentage: &pct}
}

// Sentences renders each available insight as a display sentence, in Keys order.
func (s Set) Sentences() []string {
	var out []string
	for _, k := range Keys {
		f, ok := s[k]
		if !ok {
			continue
		}
		switch k {
		case MarketLeader:
			out = append(out, fmt.Sprintf("Market Leader: %s dominates with %s vehicles (%.1f%%)", f.Value, formatCount(f.Count), *f.Percentage))
		case AverageRange:
			out = append(out, fmt.Sprintf("Average Range: %.0f miles per charge", *f.Amount))
		case DominantType:
			out = append(out, fmt.Sprintf("Vehicle Preference: %s represents %.1f%% of all EVs", f.Value, *f.Percentage))
		case GeographicLeader:
			out = append(out, fmt.Sprintf("Geographic Leader: %s leads with %s vehicles (%.1f%%)", f.Value, formatCount(f.Count), *f.Percentage))
		}
	}
	return out
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}
