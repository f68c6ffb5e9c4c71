package filter

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names understood by FromQuery.
const (
	ParamYearMin = "year_min"
	ParamYearMax = "year_max"
	ParamState   = "state"
	ParamMake    = "make"
	ParamEVType  = "ev_type"
)

// FromQuery overrides base with any selections present in q. A parameter that
// is absent keeps the base selection; a parameter present with only empty
// values selects nothing. Set parameters may repeat, and each value may hold a
// comma list in which values containing commas are double quoted.
func FromQuery(q url.Values, base Spec) (Spec, error) {
	spec := base

	years := spec.Years()
	if v := q.Get(ParamYearMin); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Spec{}, fmt.Errorf("invalid %s %q: %w", ParamYearMin, v, err)
		}
		years.Min = n
	}
	if v := q.Get(ParamYearMax); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Spec{}, fmt.Errorf("invalid %s %q: %w", ParamYearMax, v, err)
		}
		years.Max = n
	}
	spec = spec.WithYears(years)

	if values, ok := q[ParamState]; ok {
		spec = spec.WithStates(splitValues(values))
	}
	if values, ok := q[ParamMake]; ok {
		spec = spec.WithMakes(splitValues(values))
	}
	if values, ok := q[ParamEVType]; ok {
		spec = spec.WithEVTypes(splitValues(values))
	}
	return spec, nil
}

// Query encodes spec so that FromQuery reproduces it.
func (s Spec) Query() url.Values {
	q := url.Values{}
	q.Set(ParamYearMin, strconv.Itoa(s.years.Min))
	q.Set(ParamYearMax, strconv.Itoa(s.years.Max))
	setList(q, ParamState, s.States())
	setList(q, ParamMake, s.Makes())
	setList(q, ParamEVType, s.EVTypes())
	return q
}

func setList(q url.Values, key string, values []string) {
	if len(values) == 0 {
		q.Set(key, "")
		return
	}
	for _, v := range values {
		q.Add(key, JoinValues([]string{v}))
	}
}

// JoinValues writes values as one comma list that splitValues reads back,
// quoting any value that contains a comma or quote.
func JoinValues(values []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(values); err != nil {
		return strings.Join(values, ",")
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// splitValues flattens repeated values, each read as a comma list.
// Malformed quoting leaves the value whole.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		r := csv.NewReader(strings.NewReader(v))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		records, err := r.ReadAll()
		if err != nil {
			records = [][]string{{v}}
		}
		for _, record := range records {
			for _, part := range record {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}
