package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lox/evdash/internal/ingest"
	"github.com/lox/evdash/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testDataset() *models.Dataset {
	columns := []string{models.ColModelYear, models.ColState, models.ColCity, models.ColMake, models.ColModel, models.ColEVType, models.ColElectricRange}
	return &models.Dataset{
		Columns: columns,
		Caps:    models.Capabilities{City: true, ElectricRange: true},
		Source:  "data/ev.csv",
		Records: []models.Record{
			{ModelYear: 2022, State: "WA", City: "Seattle", Make: "TESLA", Model: "MODEL 3", EVType: "BEV", ElectricRange: 272,
				Raw: []string{"2022", "WA", "Seattle", "TESLA", "MODEL 3", "BEV", "272"}},
			{ModelYear: 2013, State: "WA", City: "", Make: "NISSAN", Model: "LEAF", EVType: "BEV", ElectricRange: 0,
				Raw: []string{"2013", "WA", "", "NISSAN", "LEAF", "BEV", ""}},
			{ModelYear: 2021, State: "CA", City: "Fresno", Make: "FORD", Model: "ESCAPE", EVType: "PHEV", ElectricRange: 37},
		},
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}

	// Migrating again is a no-op.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSaveAndLoadDataset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ds := testDataset()

	id, err := store.SaveDataset(ctx, ds, &ingest.Report{RowsRead: 4, RowsKept: 3, RowsSkipped: 1, Flags: map[string]int{"year_invalid": 1}})
	if err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}
	if id == "" {
		t.Fatal("expected an import ID")
	}

	got, err := store.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if got.Len() != ds.Len() {
		t.Fatalf("len = %d, want %d", got.Len(), ds.Len())
	}
	if !slices.Equal(got.Columns, ds.Columns) {
		t.Errorf("columns = %v", got.Columns)
	}
	if got.Caps != ds.Caps {
		t.Errorf("caps = %+v, want %+v", got.Caps, ds.Caps)
	}
	if got.Source != "import:"+id {
		t.Errorf("source = %q", got.Source)
	}
	for i, want := range ds.Records {
		r := got.Records[i]
		if r.ModelYear != want.ModelYear || r.Make != want.Make || r.City != want.City || r.ElectricRange != want.ElectricRange {
			t.Errorf("record %d = %+v, want %+v", i, r, want)
		}
		if !slices.Equal(r.Raw, want.Raw) {
			t.Errorf("record %d raw = %q, want %q", i, r.Raw, want.Raw)
		}
	}
	if got.Records[2].Raw != nil {
		t.Errorf("record without raw cells should load with nil raw, got %q", got.Records[2].Raw)
	}

	imp, err := store.LatestImport(ctx)
	if err != nil {
		t.Fatalf("LatestImport: %v", err)
	}
	if imp.ID != id || imp.RowsRead != 4 || imp.RowsKept != 3 || imp.RowsSkipped != 1 || imp.Flags["year_invalid"] != 1 {
		t.Errorf("import = %+v", imp)
	}
}

func TestSaveDataset_ReplacesVehicles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	firstID, err := store.SaveDataset(ctx, testDataset(), nil)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := &models.Dataset{
		Columns: models.RequiredColumns,
		Source:  "https://data.example.gov/ev.csv",
		Records: []models.Record{{ModelYear: 2024, State: "OR", Make: "KIA", Model: "EV9", EVType: "BEV"}},
	}
	secondID, err := store.SaveDataset(ctx, second, nil)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if got.Len() != 1 || got.Records[0].Make != "KIA" {
		t.Errorf("records = %+v, want only the second import", got.Records)
	}

	var remaining int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM vehicles").Scan(&remaining); err != nil {
		t.Fatal(err)
	}
	if remaining != 1 {
		t.Errorf("vehicles = %d, earlier import should be cleared", remaining)
	}

	imports, err := store.ListImports(ctx)
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("len(imports) = %d, want 2", len(imports))
	}
	if imports[0].ID != secondID || imports[1].ID != firstID {
		t.Errorf("imports not newest first: %s, %s", imports[0].ID, imports[1].ID)
	}
	if imports[1].RowsRead != 3 || imports[1].RowsKept != 3 {
		t.Errorf("nil report should record every row as kept: %+v", imports[1])
	}
	if imports[0].Flags != nil {
		t.Errorf("flags = %v, want none", imports[0].Flags)
	}
}

func TestLoadDataset_NoImport(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.LoadDataset(ctx); !errors.Is(err, ingest.ErrNoDataset) {
		t.Errorf("error = %v, want ErrNoDataset", err)
	}

	imp, err := store.LatestImport(ctx)
	if err != nil {
		t.Fatalf("LatestImport: %v", err)
	}
	if imp != nil {
		t.Errorf("import = %+v, want nil", imp)
	}

	imports, err := store.ListImports(ctx)
	if err != nil || len(imports) != 0 {
		t.Errorf("ListImports = %v, %v", imports, err)
	}
}
