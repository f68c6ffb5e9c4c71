package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lox/evdash/internal/models"
)

// Source yields the raw bytes of a dataset CSV.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks a source for location: http(s) and ftp URLs are fetched
// remotely, anything else is read as a local path.
func NewSource(location string) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: no dataset location configured", ErrNoDataset)
	}

	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		// Not a URL, or a Windows drive letter.
		return FileSource{Path: location}, nil
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPSource(location), nil
	case "ftp":
		return NewFTPSource(u), nil
	case "file":
		return FileSource{Path: u.Path}, nil
	default:
		return nil, fmt.Errorf("unsupported dataset scheme %q", u.Scheme)
	}
}

// FileSource reads a dataset from the local filesystem.
type FileSource struct {
	Path string
}

func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNoDataset, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return file, nil
}

func (f FileSource) String() string {
	return f.Path
}

// Load opens src and parses it as a vehicle population CSV.
func Load(ctx context.Context, src Source) (*models.Dataset, *Report, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	ds, report, err := ParseCSV(rc, src.String())
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", src, err)
	}
	return ds, report, nil
}

// CSVLoader returns a LoadFunc reading src on every call.
func CSVLoader(src Source) LoadFunc {
	return func(ctx context.Context) (*models.Dataset, error) {
		start := time.Now()
		ds, report, err := Load(ctx, src)
		if err != nil {
			return nil, err
		}
		log.Printf("ingest: loaded %d of %d rows from %s in %s (skipped %d)",
			report.RowsKept, report.RowsRead, src, time.Since(start).Round(time.Millisecond), report.RowsSkipped)
		for flag, n := range report.Flags {
			log.Printf("ingest: %s: %d rows flagged %s", src, n, flag)
		}
		return ds, nil
	}
}
