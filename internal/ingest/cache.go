package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lox/evdash/internal/metrics"
	"github.com/lox/evdash/internal/models"
)

// LoadFunc produces a dataset.
type LoadFunc func(ctx context.Context) (*models.Dataset, error)

// Cache memoizes a dataset load for the lifetime of the process. The cached
// dataset is shared read-only between requests. Failed loads are not
// remembered. Concurrent first calls share one load, and the lock is never
// held while loading.
type Cache struct {
	mu    sync.Mutex
	load  LoadFunc
	ds    *models.Dataset
	group singleflight.Group
}

// NewCache creates a cache around load. Nothing is loaded until Get.
func NewCache(load LoadFunc) *Cache {
	return &Cache{load: load}
}

// Get returns the cached dataset, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*models.Dataset, error) {
	if ds, ok := c.Loaded(); ok {
		return ds, nil
	}

	v, err, _ := c.group.Do("load", func() (any, error) {
		if ds, ok := c.Loaded(); ok {
			return ds, nil
		}
		ds, err := c.run(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		// A Refresh that finished first wins.
		if c.ds == nil {
			c.ds = ds
		}
		return c.ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Dataset), nil
}

// Refresh loads a new dataset and swaps it in. Readers keep the previous
// dataset until the load succeeds; on failure it stays cached.
func (c *Cache) Refresh(ctx context.Context) (*models.Dataset, error) {
	ds, err := c.run(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ds = ds
	c.mu.Unlock()
	return ds, nil
}

func (c *Cache) run(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()
	ds, err := c.load(ctx)
	metrics.DatasetLoadLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DatasetLoadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetRecords.Set(float64(ds.Len()))
	return ds, nil
}

// Loaded returns the cached dataset without loading.
func (c *Cache) Loaded() (*models.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds, c.ds != nil
}
