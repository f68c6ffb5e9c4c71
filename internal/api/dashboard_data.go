package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/lox/evdash/internal/aggregate"
	"github.com/lox/evdash/internal/filter"
	"github.com/lox/evdash/internal/insight"
	"github.com/lox/evdash/internal/metrics"
	"github.com/lox/evdash/internal/models"
)

// BadFilterError reports query parameters that do not form a filter.
type BadFilterError struct {
	Err error
}

func (e *BadFilterError) Error() string { return "bad filter: " + e.Err.Error() }
func (e *BadFilterError) Unwrap() error { return e.Err }

// filteredView loads the dataset and applies the filter described by q on
// top of the configured defaults.
func (s *Server) filteredView(ctx context.Context, q url.Values) (*models.Dataset, filter.Spec, models.View, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, filter.Spec{}, models.View{}, err
	}
	spec, err := filter.FromQuery(q, filter.Defaults(ds, s.cfg.Defaults))
	if err != nil {
		return nil, filter.Spec{}, models.View{}, &BadFilterError{Err: err}
	}
	v := filter.Apply(ds, spec)
	metrics.FilteredRecords.Observe(float64(v.Len()))
	return ds, spec, v, nil
}

// buildDashboard runs one full render cycle: filter, aggregate, insights.
func (s *Server) buildDashboard(ctx context.Context, endpoint string, q url.Values) (*DashboardData, error) {
	start := time.Now()
	defer func() {
		metrics.RenderLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()
	metrics.RenderCyclesTotal.WithLabelValues(endpoint).Inc()

	ds, spec, v, err := s.filteredView(ctx, q)
	if err != nil {
		return nil, err
	}

	result := aggregate.Compute(v, s.cfg.Aggregation)
	insights := insight.Derive(result, v.Len())

	data := &DashboardData{
		Dataset: DatasetInfo{
			Source:   ds.Source,
			Records:  ds.Len(),
			LoadedAt: ds.LoadedAt,
			Columns:  ds.Columns,
			Options:  filter.OptionsFor(ds),
		},
		Filter:    spec.Summary(),
		Query:     spec.Query().Encode(),
		Result:    result,
		Insights:  insights,
		Sentences: insights.Sentences(),
		Empty:     v.Len() == 0,
	}
	if data.Empty {
		data.Message = insight.NoDataMessage
	}
	return data, nil
}

// Dashboard computes the dashboard for a filter query outside of HTTP.
func (s *Server) Dashboard(ctx context.Context, q url.Values) (*DashboardData, error) {
	data, err := s.buildDashboard(ctx, "cli", q)
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return data, nil
}
