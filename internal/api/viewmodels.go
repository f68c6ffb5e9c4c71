package api

import (
	"time"

	"github.com/lox/evdash/internal/aggregate"
	"github.com/lox/evdash/internal/filter"
	"github.com/lox/evdash/internal/insight"
)

// DatasetInfo describes the loaded dataset.
type DatasetInfo struct {
	Source   string         `json:"source"`
	Records  int            `json:"records"`
	LoadedAt time.Time      `json:"loaded_at"`
	Columns  []string       `json:"columns"`
	Options  filter.Options `json:"options"`
}

// DashboardData is everything one render cycle produces.
type DashboardData struct {
	Dataset   DatasetInfo      `json:"dataset"`
	Filter    filter.Summary   `json:"filter"`
	Query     string           `json:"query"`
	Result    aggregate.Result `json:"result"`
	Insights  insight.Set      `json:"insights"`
	Sentences []string         `json:"sentences"`
	Empty     bool             `json:"empty"`
	Message   string           `json:"message,omitempty"`
}

// IndexData feeds the dashboard page.
type IndexData struct {
	*DashboardData
	Narrative string
	Setup     []string
	Error     string
}

type HealthStatus struct {
	Status           string     `json:"status"`
	DatasetLoaded    bool       `json:"dataset_loaded"`
	Records          int        `json:"records"`
	Source           string     `json:"source,omitempty"`
	LoadedAt         *time.Time `json:"loaded_at,omitempty"`
	MigrationVersion int        `json:"migration_version,omitempty"`
	Error            string     `json:"error,omitempty"`
}
