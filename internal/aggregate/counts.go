package aggregate

import (
	"sort"
	"strconv"

	"github.com/lox/evdash/internal/models"
)

// Field is a categorical record attribute that can be counted or grouped.
type Field string

const (
	FieldMake      Field = "make"
	FieldModel     Field = "model"
	FieldState     Field = "state"
	FieldCity      Field = "city"
	FieldEVType    Field = "ev_type"
	FieldCAFV      Field = "cafv_eligibility"
	FieldModelYear Field = "model_year"
)

// Value extracts the field from a record as a string.
func (f Field) Value(r models.Record) string {
	switch f {
	case FieldMake:
		return r.Make
	case FieldModel:
		return r.Model
	case FieldState:
		return r.State
	case FieldCity:
		return r.City
	case FieldEVType:
		return r.EVType
	case FieldCAFV:
		return r.CAFVEligibility
	case FieldModelYear:
		return strconv.Itoa(r.ModelYear)
	default:
		return ""
	}
}

// Available reports whether the dataset carries the column behind f.
func (f Field) Available(caps models.Capabilities) bool {
	switch f {
	case FieldCity:
		return caps.City
	case FieldCAFV:
		return caps.CAFV
	default:
		return true
	}
}

// Count is one distinct value and the number of records holding it.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PairCount is a count for a combination of two fields.
type PairCount struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Count  int    `json:"count"`
}

// Ranked is a key with its occurrence count.
type Ranked[K comparable] struct {
	Key   K
	Count int
}

// Rank counts items by key and orders the keys by count, highest first.
// Equal counts keep the order in which keys first appeared. k <= 0 keeps all keys.
func Rank[T any, K comparable](items []T, keyOf func(T) K, k int) []Ranked[K] {
	index := make(map[K]int)
	var ranked []Ranked[K]
	for _, item := range items {
		key := keyOf(item)
		if i, ok := index[key]; ok {
			ranked[i].Count++
			continue
		}
		index[key] = len(ranked)
		ranked = append(ranked, Ranked[K]{Key: key, Count: 1})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// ValueCounts returns the distinct values of field in the view ordered by count.
// An unavailable field yields no counts.
func ValueCounts(v models.View, field Field) []Count {
	if !field.Available(v.Caps) {
		return nil
	}
	ranked := Rank(v.Records, field.Value, 0)
	counts := make([]Count, len(ranked))
	for i, r := range ranked {
		counts[i] = Count{Value: r.Key, Count: r.Count}
	}
	return counts
}

// TopN truncates counts to the first n entries. n <= 0 returns counts unchanged.
func TopN(counts []Count, n int) []Count {
	if n <= 0 || len(counts) <= n {
		return counts
	}
	return counts[:n]
}

// Top returns the first entry of counts.
func Top(counts []Count) (Count, bool) {
	if len(counts) == 0 {
		return Count{}, false
	}
	return counts[0], true
}

// GroupCounts counts every combination of two fields, highest count first.
func GroupCounts(v models.View, first, second Field) []PairCount {
	if !first.Available(v.Caps) || !second.Available(v.Caps) {
		return nil
	}
	ranked := Rank(v.Records, func(r models.Record) [2]string {
		return [2]string{first.Value(r), second.Value(r)}
	}, 0)

	pairs := make([]PairCount, len(ranked))
	for i, r := range ranked {
		pairs[i] = PairCount{First: r.Key[0], Second: r.Key[1], Count: r.Count}
	}
	return pairs
}

// Distinct returns the number of distinct values of field in the view.
func Distinct(v models.View, field Field) int {
	if !field.Available(v.Caps) {
		return 0
	}
	seen := make(map[string]struct{})
	for _, r := range v.Records {
		seen[field.Value(r)] = struct{}{}
	}
	return len(seen)
}
