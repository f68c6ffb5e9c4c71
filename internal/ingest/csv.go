package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/evdash/internal/metrics"
	"github.com/lox/evdash/internal/models"
)

// ErrNoDataset means no dataset could be loaded. Callers should show setup
// instructions rather than fail.
var ErrNoDataset = errors.New("dataset not loaded")

// MissingColumnsError reports required columns absent from a CSV header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrNoDataset
}

// Report summarises one parse.
type Report struct {
	Source      string         `json:"source"`
	RowsRead    int            `json:"rows_read"`
	RowsKept    int            `json:"rows_kept"`
	RowsSkipped int            `json:"rows_skipped"`
	Flags       map[string]int `json:"flags,omitempty"`
}

func (r *Report) flag(name string) {
	if r.Flags == nil {
		r.Flags = make(map[string]int)
	}
	r.Flags[name]++
	metrics.RowsFlaggedTotal.WithLabelValues(name).Inc()
}

type columnIndex struct {
	modelYear, state, city, make, model, evType, cafv, electricRange, baseMSRP int
}

func indexColumns(header []string) (columnIndex, models.Capabilities, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	find := func(col string) int {
		if i, ok := pos[strings.ToLower(col)]; ok {
			return i
		}
		return -1
	}

	var missing []string
	for _, col := range models.RequiredColumns {
		if find(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, models.Capabilities{}, &MissingColumnsError{Columns: missing}
	}

	idx := columnIndex{
		modelYear:     find(models.ColModelYear),
		state:         find(models.ColState),
		city:          find(models.ColCity),
		make:          find(models.ColMake),
		model:         find(models.ColModel),
		evType:        find(models.ColEVType),
		cafv:          find(models.ColCAFVEligibility),
		electricRange: find(models.ColElectricRange),
		baseMSRP:      find(models.ColBaseMSRP),
	}
	caps := models.Capabilities{
		City:          idx.city >= 0,
		CAFV:          idx.cafv >= 0,
		ElectricRange: idx.electricRange >= 0,
		BaseMSRP:      idx.baseMSRP >= 0,
	}
	return idx, caps, nil
}

// ParseCSV reads a vehicle population CSV. Rows with an unreadable model year
// are skipped; blank or unreadable range and price cells become the unknown
// sentinel 0. Missing optional columns are reported through Capabilities.
func ParseCSV(r io.Reader, source string) (*models.Dataset, *Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: %s has no header row", ErrNoDataset, source)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	idx, caps, err := indexColumns(header)
	if err != nil {
		return nil, nil, err
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	ds := &models.Dataset{
		Columns:  columns,
		Caps:     caps,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}
	report := &Report{Source: source}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		report.RowsRead++
		if err != nil {
			report.RowsSkipped++
			report.flag(FlagMalformedRow)
			continue
		}

		rec, ok := parseRow(row, idx, len(columns), report)
		if !ok {
			report.RowsSkipped++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	report.RowsKept = len(ds.Records)
	return ds, report, nil
}

func parseRow(row []string, idx columnIndex, width int, report *Report) (models.Record, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	year, err := parseYear(cell(idx.modelYear))
	if err != nil {
		report.flag(FlagYearInvalid)
		return models.Record{}, false
	}

	rec := models.Record{
		ModelYear:       year,
		State:           cell(idx.state),
		City:            cell(idx.city),
		Make:            cell(idx.make),
		Model:           cell(idx.model),
		EVType:          cell(idx.evType),
		CAFVEligibility: cell(idx.cafv),
	}

	if rec.ElectricRange, err = parseNumber(cell(idx.electricRange)); err != nil {
		report.flag(FlagRangeInvalid)
	}
	if rec.BaseMSRP, err = parseMoney(cell(idx.baseMSRP)); err != nil {
		report.flag(FlagMSRPInvalid)
	}

	for _, f := range ValidateRecord(&rec) {
		report.flag(f)
	}
	sanitize(&rec)

	raw := make([]string, width)
	copy(raw, row)
	rec.Raw = raw
	return rec, true
}

func parseYear(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("model year %q is not a whole number", s)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("model year %q is out of range", s)
	}
	return int(f), nil
}

// parseNumber reads a numeric cell. Blank cells are the unknown sentinel.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("number %q is not finite", s)
	}
	return f, nil
}

// parseMoney reads a price cell such as "46440", "$46,440.00" or "46440.0".
func parseMoney(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Round(2).InexactFloat64(), nil
}
