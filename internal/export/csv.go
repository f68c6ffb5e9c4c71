package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lox/evdash/internal/models"
)

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("filtered_ev_data_%s.csv", t.Format("20060102_150405"))
}

// WriteCSV writes the view as CSV: one header row with the original column
// names, then one row per record in view order. Records that kept their
// original cells are written verbatim; others are rendered from their fields.
func WriteCSV(w io.Writer, v models.View) error {
	columns := v.Columns
	if len(columns) == 0 {
		columns = models.CanonicalColumns
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, r := range v.Records {
		if len(r.Raw) == len(columns) {
			copy(row, r.Raw)
		} else {
			for j, col := range columns {
				row[j] = fieldValue(r, col)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func fieldValue(r models.Record, column string) string {
	switch column {
	case models.ColModelYear:
		return strconv.Itoa(r.ModelYear)
	case models.ColState:
		return r.State
	case models.ColCity:
		return r.City
	case models.ColMake:
		return r.Make
	case models.ColModel:
		return r.Model
	case models.ColEVType:
		return r.EVType
	case models.ColCAFVEligibility:
		return r.CAFVEligibility
	case models.ColElectricRange:
		return strconv.FormatFloat(r.ElectricRange, 'f', -1, 64)
	case models.ColBaseMSRP:
		return strconv.FormatFloat(r.BaseMSRP, 'f', -1, 64)
	default:
		return ""
	}
}
