package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/evdash/internal/api"
	"github.com/lox/evdash/internal/config"
	"github.com/lox/evdash/internal/export"
	"github.com/lox/evdash/internal/filter"
	"github.com/lox/evdash/internal/ingest"
	"github.com/lox/evdash/internal/store"
)

type Globals struct {
	DB      string `help:"Path to SQLite database." default:"data/evdash.db" env:"EVDASH_DB"`
	Config  string `help:"Path to YAML config file." default:"evdash.yaml" env:"EVDASH_CONFIG"`
	Dataset string `help:"Dataset CSV location (path, http(s):// or ftp:// URL). Uses the last import when empty." env:"EVDASH_DATASET"`
}

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the dashboard web server."`
	Import  ImportCmd  `cmd:"" help:"Load a dataset and store it as the current snapshot."`
	Summary SummaryCmd `cmd:"" help:"Print the dashboard for a filter as JSON."`
	Export  ExportCmd  `cmd:"" help:"Write the filtered records as CSV."`
}

// FilterFlags mirror the dashboard's filter query parameters.
type FilterFlags struct {
	YearMin int      `name:"year-min" help:"First model year."`
	YearMax int      `name:"year-max" help:"Last model year."`
	State   []string `help:"States to include."`
	Make    []string `help:"Makes to include."`
	EVType  []string `name:"ev-type" help:"Electric vehicle types to include."`
}

func (f FilterFlags) Query() url.Values {
	q := url.Values{}
	if f.YearMin != 0 {
		q.Set(filter.ParamYearMin, strconv.Itoa(f.YearMin))
	}
	if f.YearMax != 0 {
		q.Set(filter.ParamYearMax, strconv.Itoa(f.YearMax))
	}
	if len(f.State) > 0 {
		q[filter.ParamState] = f.State
	}
	if len(f.Make) > 0 {
		q[filter.ParamMake] = f.Make
	}
	if len(f.EVType) > 0 {
		q[filter.ParamEVType] = f.EVType
	}
	return q
}

type ServeCmd struct {
	Port    string        `help:"HTTP server port." default:"8080" env:"PORT"`
	Refresh time.Duration `help:"Reload the dataset at this interval; 0 loads once." default:"0s" env:"EVDASH_REFRESH"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	db, st, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	load, err := loader(g, st)
	if err != nil {
		return err
	}
	cache := ingest.NewCache(load)
	server := api.NewServer(cache, st, cfg, c.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go ingest.NewScheduler(cache, c.Refresh).Run(ctx)

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type ImportCmd struct {
	Location string `arg:"" help:"CSV path or URL to import."`
}

func (c *ImportCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := ingest.NewSource(c.Location)
	if err != nil {
		return err
	}
	db, st, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	ds, report, err := ingest.Load(ctx, src)
	if err != nil {
		return err
	}
	id, err := st.SaveDataset(ctx, ds, report)
	if err != nil {
		return err
	}

	fmt.Printf("import %s: kept %d of %d rows (%d skipped)\n", id, report.RowsKept, report.RowsRead, report.RowsSkipped)
	for flag, n := range report.Flags {
		fmt.Printf("  %s: %d\n", flag, n)
	}
	return nil
}

type SummaryCmd struct {
	FilterFlags `embed:""`
}

func (c *SummaryCmd) Run(g *Globals) error {
	ctx := context.Background()
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	db, st, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	load, err := loader(g, st)
	if err != nil {
		return err
	}
	server := api.NewServer(ingest.NewCache(load), st, cfg, "")
	data, err := server.Dashboard(ctx, c.Query())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type ExportCmd struct {
	FilterFlags `embed:""`

	Out string `short:"o" help:"Output file or directory. Writes to stdout when empty."`
}

func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	db, st, err := openStore(g.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	load, err := loader(g, st)
	if err != nil {
		return err
	}
	ds, err := load(ctx)
	if err != nil {
		return err
	}
	spec, err := filter.FromQuery(c.Query(), filter.Defaults(ds, cfg.Defaults))
	if err != nil {
		return err
	}
	v := filter.Apply(ds, spec)

	if c.Out == "" || c.Out == "-" {
		return export.WriteCSV(os.Stdout, v)
	}

	path := c.Out
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, export.FileName(time.Now()))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteCSV(f, v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("exported %d records to %s", v.Len(), path)
	return nil
}

func openStore(path string) (*sql.DB, *store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, st, nil
}

// loader reads the configured dataset location, or the last import when no
// location is set.
func loader(g *Globals, st *store.Store) (ingest.LoadFunc, error) {
	if g.Dataset == "" {
		log.Printf("no dataset location set, using last import from %s", g.DB)
		return st.LoadDataset, nil
	}
	src, err := ingest.NewSource(g.Dataset)
	if err != nil {
		return nil, err
	}
	return ingest.CSVLoader(src), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("evdash"),
		kong.Description("Electric vehicle registration dashboard."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
