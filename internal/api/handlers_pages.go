package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/lox/evdash/internal/ingest"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	indexData := IndexData{}
	status := http.StatusOK

	data, err := s.buildDashboard(r.Context(), "index", r.URL.Query())
	var bad *BadFilterError
	switch {
	case err == nil:
		indexData.DashboardData = data
		if narrative, err := s.narrator.Narrate(r.Context(), data.Insights); err != nil {
			log.Printf("index: narrate: %v", err)
		} else {
			indexData.Narrative = narrative
		}
	case errors.Is(err, ingest.ErrNoDataset):
		indexData.Setup = SetupInstructions
		indexData.Error = err.Error()
	case errors.As(err, &bad):
		status = http.StatusBadRequest
		indexData.Error = bad.Error()
	default:
		log.Printf("index: %v", err)
		status = http.StatusInternalServerError
		indexData.Error = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", indexData); err != nil {
		log.Printf("template error: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}

	if ds, ok := s.cache.Loaded(); ok {
		health.DatasetLoaded = true
		health.Records = ds.Len()
		health.Source = ds.Source
		loadedAt := ds.LoadedAt
		health.LoadedAt = &loadedAt
	}

	status := http.StatusOK
	if s.store != nil {
		version, err := s.store.MigrationVersion()
		if err != nil {
			health.Status = "error"
			health.Error = err.Error()
			status = http.StatusInternalServerError
		}
		health.MigrationVersion = version
	}

	writeJSON(w, status, health)
}
