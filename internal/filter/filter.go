package filter

import (
	"sort"

	"github.com/lox/evdash/internal/models"
)

// YearRange is a closed interval of model years.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Empty reports whether the range admits no year.
func (y YearRange) Empty() bool {
	return y.Min > y.Max
}

// Contains reports whether year lies within the range, bounds included.
func (y YearRange) Contains(year int) bool {
	return year >= y.Min && year <= y.Max
}

type set map[string]struct{}

func newSet(values []string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Spec is an immutable filter selection. A record passes when its year is in
// range and its state, make and EV type are each in the selected sets.
// An empty set selects nothing.
type Spec struct {
	years   YearRange
	states  set
	makes   set
	evTypes set
}

// NewSpec builds a Spec, copying the given selections.
func NewSpec(years YearRange, states, makes, evTypes []string) Spec {
	return Spec{
		years:   years,
		states:  newSet(states),
		makes:   newSet(makes),
		evTypes: newSet(evTypes),
	}
}

// Years returns the selected year range.
func (s Spec) Years() YearRange { return s.years }

// States returns the selected states, sorted.
func (s Spec) States() []string { return s.states.sorted() }

// Makes returns the selected makes, sorted.
func (s Spec) Makes() []string { return s.makes.sorted() }

// EVTypes returns the selected EV types, sorted.
func (s Spec) EVTypes() []string { return s.evTypes.sorted() }

// WithYears returns a copy of s with a different year range.
func (s Spec) WithYears(years YearRange) Spec {
	s.years = years
	return s
}

// WithStates returns a copy of s selecting the given states.
func (s Spec) WithStates(states []string) Spec {
	s.states = newSet(states)
	return s
}

// WithMakes returns a copy of s selecting the given makes.
func (s Spec) WithMakes(makes []string) Spec {
	s.makes = newSet(makes)
	return s
}

// WithEVTypes returns a copy of s selecting the given EV types.
func (s Spec) WithEVTypes(evTypes []string) Spec {
	s.evTypes = newSet(evTypes)
	return s
}

// Match reports whether r passes every predicate of s.
func (s Spec) Match(r models.Record) bool {
	return s.years.Contains(r.ModelYear) &&
		s.states.has(r.State) &&
		s.makes.has(r.Make) &&
		s.evTypes.has(r.EVType)
}

// Summary describes a Spec for display and JSON responses.
type Summary struct {
	Years   YearRange `json:"years"`
	States  []string  `json:"states"`
	Makes   []string  `json:"makes"`
	EVTypes []string  `json:"ev_types"`
}

// Summary returns a serializable copy of the selection.
func (s Spec) Summary() Summary {
	return Summary{
		Years:   s.years,
		States:  s.States(),
		Makes:   s.Makes(),
		EVTypes: s.EVTypes(),
	}
}

// Apply returns the records of ds passing spec, in dataset order.
// The dataset is not modified.
func Apply(ds *models.Dataset, spec Spec) models.View {
	v := models.View{
		Records:     []models.Record{},
		Columns:     models.CanonicalColumns,
		DatasetSize: ds.Len(),
	}
	if ds == nil {
		return v
	}
	if len(ds.Columns) > 0 {
		v.Columns = ds.Columns
	}
	v.Caps = ds.Caps

	if spec.years.Empty() || len(spec.states) == 0 || len(spec.makes) == 0 || len(spec.evTypes) == 0 {
		return v
	}
	for _, r := range ds.Records {
		if spec.Match(r) {
			v.Records = append(v.Records, r)
		}
	}
	return v
}
