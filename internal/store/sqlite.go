package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lox/evdash/internal/ingest"
	"github.com/lox/evdash/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Import describes one stored dataset snapshot.
type Import struct {
	ID          string
	Source      string
	Columns     []string
	Caps        models.Capabilities
	RowsRead    int
	RowsKept    int
	RowsSkipped int
	Flags       map[string]int
	ImportedAt  time.Time
}

// SaveDataset stores ds as the current snapshot, replacing the vehicles of
// any earlier import. Import history is kept. Returns the new import ID.
func (s *Store) SaveDataset(ctx context.Context, ds *models.Dataset, report *ingest.Report) (string, error) {
	id := uuid.NewString()

	columnsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	var flagsJSON []byte
	var read, kept, skipped int
	if report != nil {
		read, kept, skipped = report.RowsRead, report.RowsKept, report.RowsSkipped
		if len(report.Flags) > 0 {
			if flagsJSON, err = json.Marshal(report.Flags); err != nil {
				return "", fmt.Errorf("marshal flags: %w", err)
			}
		}
	} else {
		read, kept = ds.Len(), ds.Len()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles`); err != nil {
		return "", fmt.Errorf("clear vehicles: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dataset_imports (id, source, columns_json, has_city, has_cafv, has_electric_range, has_base_msrp,
			rows_read, rows_kept, rows_skipped, flags_json, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, ds.Source, string(columnsJSON), ds.Caps.City, ds.Caps.CAFV, ds.Caps.ElectricRange, ds.Caps.BaseMSRP,
		read, kept, skipped, nullString(flagsJSON), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert import: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicles (import_id, seq, model_year, state, city, make, model, ev_type, cafv_eligibility,
			electric_range, base_msrp, raw_row)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare vehicle insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records {
		var raw []byte
		if r.Raw != nil {
			if raw, err = json.Marshal(r.Raw); err != nil {
				return "", fmt.Errorf("marshal row %d: %w", i, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.ModelYear, r.State, r.City, r.Make, r.Model, r.EVType,
			r.CAFVEligibility, r.ElectricRange, r.BaseMSRP, nullString(raw)); err != nil {
			return "", fmt.Errorf("insert vehicle %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit import: %w", err)
	}
	log.Printf("store: saved import %s with %d vehicles from %s", id, ds.Len(), ds.Source)
	return id, nil
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

const importColumns = `id, source, columns_json, has_city, has_cafv, has_electric_range, has_base_msrp,
	rows_read, rows_kept, rows_skipped, flags_json, imported_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImport(row rowScanner) (*Import, error) {
	var imp Import
	var columnsJSON string
	var flagsJSON sql.NullString
	var read, kept, skipped sql.NullInt64
	if err := row.Scan(&imp.ID, &imp.Source, &columnsJSON, &imp.Caps.City, &imp.Caps.CAFV,
		&imp.Caps.ElectricRange, &imp.Caps.BaseMSRP, &read, &kept, &skipped, &flagsJSON, &imp.ImportedAt); err != nil {
		return nil, err
	}
	imp.RowsRead, imp.RowsKept, imp.RowsSkipped = int(read.Int64), int(kept.Int64), int(skipped.Int64)
	if err := json.Unmarshal([]byte(columnsJSON), &imp.Columns); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	if flagsJSON.Valid {
		if err := json.Unmarshal([]byte(flagsJSON.String), &imp.Flags); err != nil {
			return nil, fmt.Errorf("unmarshal flags: %w", err)
		}
	}
	return &imp, nil
}

// LatestImport returns the most recent import, or nil if none exists.
func (s *Store) LatestImport(ctx context.Context) (*Import, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM dataset_imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`)
	imp, err := scanImport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return imp, nil
}

// ListImports returns every import, newest first.
func (s *Store) ListImports(ctx context.Context) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+importColumns+` FROM dataset_imports ORDER BY imported_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, *imp)
	}
	return imports, rows.Err()
}

// LoadDataset reads the latest snapshot in its original order.
// It returns ingest.ErrNoDataset when nothing has been imported.
func (s *Store) LoadDataset(ctx context.Context) (*models.Dataset, error) {
	imp, err := s.LatestImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest import: %w", err)
	}
	if imp == nil {
		return nil, fmt.Errorf("%w: no import in database", ingest.ErrNoDataset)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT model_year, state, city, make, model, ev_type, cafv_eligibility, electric_range, base_msrp, raw_row
		FROM vehicles
		WHERE import_id = ?
		ORDER BY seq ASC
	`, imp.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ds := &models.Dataset{
		Columns:  imp.Columns,
		Caps:     imp.Caps,
		Source:   "import:" + imp.ID,
		LoadedAt: time.Now().UTC(),
	}
	for rows.Next() {
		var r models.Record
		var city, cafv, raw sql.NullString
		if err := rows.Scan(&r.ModelYear, &r.State, &city, &r.Make, &r.Model, &r.EVType, &cafv,
			&r.ElectricRange, &r.BaseMSRP, &raw); err != nil {
			return nil, err
		}
		r.City, r.CAFVEligibility = city.String, cafv.String
		if raw.Valid {
			if err := json.Unmarshal([]byte(raw.String), &r.Raw); err != nil {
				return nil, fmt.Errorf("unmarshal raw row: %w", err)
			}
		}
		ds.Records = append(ds.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}
