package models

import "time"

// Original column names of the vehicle population CSV.
const (
	ColVIN             = "VIN (1-10)"
	ColCounty          = "County"
	ColCity            = "City"
	ColState           = "State"
	ColPostalCode      = "Postal Code"
	ColModelYear       = "Model Year"
	ColMake            = "Make"
	ColModel           = "Model"
	ColEVType          = "Electric Vehicle Type"
	ColCAFVEligibility = "Clean Alternative Fuel Vehicle (CAFV) Eligibility"
	ColElectricRange   = "Electric Range"
	ColBaseMSRP        = "Base MSRP"
)

// RequiredColumns must be present for a dataset to load at all.
var RequiredColumns = []string{ColModelYear, ColState, ColMake, ColModel, ColEVType}

// CanonicalColumns is the header used when a dataset carries no original header,
// e.g. records built in code.
var CanonicalColumns = []string{
	ColCity, ColState, ColModelYear, ColMake, ColModel, ColEVType,
	ColCAFVEligibility, ColElectricRange, ColBaseMSRP,
}

// Record is one vehicle registration.
// ElectricRange and BaseMSRP use 0 for "unknown".
type Record struct {
	ModelYear       int      `json:"model_year"`
	State           string   `json:"state"`
	City            string   `json:"city,omitempty"`
	Make            string   `json:"make"`
	Model           string   `json:"model"`
	EVType          string   `json:"ev_type"`
	CAFVEligibility string   `json:"cafv_eligibility,omitempty"`
	ElectricRange   float64  `json:"electric_range"`
	BaseMSRP        float64  `json:"base_msrp"`
	Raw             []string `json:"-"` // original cells, aligned with Dataset.Columns
}

// Capabilities records which optional columns a dataset carries.
type Capabilities struct {
	City          bool `json:"city"`
	CAFV          bool `json:"cafv"`
	ElectricRange bool `json:"electric_range"`
	BaseMSRP      bool `json:"base_msrp"`
}

// AllCapabilities is used for datasets assembled in code with every field set.
var AllCapabilities = Capabilities{City: true, CAFV: true, ElectricRange: true, BaseMSRP: true}

// Dataset is the full set of loaded records. It is never mutated after load.
type Dataset struct {
	Columns  []string
	Records  []Record
	Caps     Capabilities
	Source   string
	LoadedAt time.Time
}

// Len returns the number of records, tolerating a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// View is the subset of a dataset that passed a filter, in dataset order.
type View struct {
	Records     []Record
	Columns     []string
	Caps        Capabilities
	DatasetSize int
}

// Len returns the number of records in the view.
func (v View) Len() int {
	return len(v.Records)
}

// NewView wraps records as a view over a dataset with the given capabilities.
// Mostly useful in tests and callers that build records in code.
func NewView(records []Record, caps Capabilities) View {
	return View{
		Records:     records,
		Columns:     CanonicalColumns,
		Caps:        caps,
		DatasetSize: len(records),
	}
}
