package ingest

import (
	"strings"

	"github.com/lox/evdash/internal/models"
)

const (
	FlagYearInvalid    = "year_invalid"
	FlagYearOutOfRange = "year_out_of_range"
	FlagRangeInvalid   = "range_invalid"
	FlagRangeNegative  = "range_negative"
	FlagMSRPInvalid    = "msrp_invalid"
	FlagMSRPNegative   = "msrp_negative"
	FlagStateMissing   = "state_missing"
	FlagMakeMissing    = "make_missing"
	FlagMalformedRow   = "malformed_row"
)

const (
	minModelYear = 1990
	maxModelYear = 2100
)

// ValidateRecord returns quality flags for a parsed record. Flagged records
// are still loaded; the flags feed the load report.
func ValidateRecord(rec *models.Record) []string {
	var flags []string

	if rec.ModelYear < minModelYear || rec.ModelYear > maxModelYear {
		flags = append(flags, FlagYearOutOfRange)
	}

	if rec.ElectricRange < 0 {
		flags = append(flags, FlagRangeNegative)
	}

	if rec.BaseMSRP < 0 {
		flags = append(flags, FlagMSRPNegative)
	}

	if strings.TrimSpace(rec.State) == "" {
		flags = append(flags, FlagStateMissing)
	}

	if strings.TrimSpace(rec.Make) == "" {
		flags = append(flags, FlagMakeMissing)
	}

	return flags
}

// sanitize resets negative range and price values to the unknown sentinel.
func sanitize(rec *models.Record) {
	if rec.ElectricRange < 0 {
		rec.ElectricRange = 0
	}
	if rec.BaseMSRP < 0 {
		rec.BaseMSRP = 0
	}
}
