package filter

import (
	"sort"

	"github.com/lox/evdash/internal/aggregate"
	"github.com/lox/evdash/internal/models"
)

// Options lists the values a user can choose from.
type Options struct {
	Years   YearRange `json:"years"`
	States  []string  `json:"states"`
	Makes   []string  `json:"makes"`
	EVTypes []string  `json:"ev_types"`
}

// DefaultSizes controls how many states and makes the default selection holds.
type DefaultSizes struct {
	States int `yaml:"states"`
	Makes  int `yaml:"makes"`
}

// OptionsFor collects the selectable values of a dataset: sorted states and
// makes, EV types in order of first appearance.
func OptionsFor(ds *models.Dataset) Options {
	var opts Options
	if ds.Len() == 0 {
		return opts
	}

	opts.Years = YearRange{Min: ds.Records[0].ModelYear, Max: ds.Records[0].ModelYear}
	states := make(set)
	makes := make(set)
	evTypes := make(set)
	for _, r := range ds.Records {
		opts.Years.Min = min(opts.Years.Min, r.ModelYear)
		opts.Years.Max = max(opts.Years.Max, r.ModelYear)
		states[r.State] = struct{}{}
		makes[r.Make] = struct{}{}
		if !evTypes.has(r.EVType) {
			evTypes[r.EVType] = struct{}{}
			opts.EVTypes = append(opts.EVTypes, r.EVType)
		}
	}
	opts.States = states.sorted()
	opts.Makes = makes.sorted()
	return opts
}

// Defaults builds the initial selection: the full year range, the first
// sizes.States states alphabetically, the sizes.Makes most common makes and
// every EV type.
func Defaults(ds *models.Dataset, sizes DefaultSizes) Spec {
	opts := OptionsFor(ds)
	if ds.Len() == 0 {
		return NewSpec(opts.Years, nil, nil, nil)
	}

	states := opts.States
	if sizes.States > 0 && len(states) > sizes.States {
		states = states[:sizes.States]
	}

	all := models.View{Records: ds.Records, Caps: ds.Caps, DatasetSize: ds.Len()}
	top := aggregate.TopN(aggregate.ValueCounts(all, aggregate.FieldMake), sizes.Makes)
	makes := make([]string, len(top))
	for i, c := range top {
		makes[i] = c.Value
	}
	sort.Strings(makes)

	return NewSpec(opts.Years, states, makes, opts.EVTypes)
}

// All selects every value present in the dataset.
func All(ds *models.Dataset) Spec {
	opts := OptionsFor(ds)
	return NewSpec(opts.Years, opts.States, opts.Makes, opts.EVTypes)
}
