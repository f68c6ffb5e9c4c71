package ingest

import (
	"context"
	"log"
	"time"
)

// Scheduler reloads the dataset on a fixed interval so that remote sources
// pick up new publications without a restart.
type Scheduler struct {
	cache    *Cache
	interval time.Duration
}

func NewScheduler(cache *Cache, interval time.Duration) *Scheduler {
	return &Scheduler{
		cache:    cache,
		interval: interval,
	}
}

// Run loads the dataset once, then refreshes it every interval until ctx is
// cancelled. A failed refresh keeps the previous dataset.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.cache.Get(ctx); err != nil {
		log.Printf("scheduler: initial load: %v", err)
	}
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	start := time.Now()
	ds, err := s.cache.Refresh(ctx)
	if err != nil {
		log.Printf("scheduler: refresh failed, keeping previous dataset: %v", err)
		return
	}
	log.Printf("scheduler: refreshed %d records from %s in %s", ds.Len(), ds.Source, time.Since(start).Round(time.Millisecond))
}
