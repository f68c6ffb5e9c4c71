package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS dataset_imports (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    columns_json TEXT NOT NULL,
    has_city BOOLEAN DEFAULT FALSE,
    has_cafv BOOLEAN DEFAULT FALSE,
    has_electric_range BOOLEAN DEFAULT FALSE,
    has_base_msrp BOOLEAN DEFAULT FALSE,
    rows_read INTEGER,
    rows_kept INTEGER,
    rows_skipped INTEGER,
    flags_json TEXT,
    imported_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vehicles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    import_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    model_year INTEGER NOT NULL,
    state TEXT NOT NULL,
    city TEXT,
    make TEXT NOT NULL,
    model TEXT NOT NULL,
    ev_type TEXT NOT NULL,
    cafv_eligibility TEXT,
    electric_range REAL DEFAULT 0,
    base_msrp REAL DEFAULT 0,
    raw_row TEXT,
    UNIQUE(import_id, seq)
);
`,
	},
	{
		Version:     2,
		Description: "Import lookup indexes",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_vehicles_import_seq ON vehicles(import_id, seq);
CREATE INDEX IF NOT EXISTS idx_imports_imported_at ON dataset_imports(imported_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
