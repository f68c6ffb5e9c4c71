package api

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/evdash/internal/export"
	"github.com/lox/evdash/internal/filter"
	"github.com/lox/evdash/internal/insight"
	"github.com/lox/evdash/internal/metrics"
	"github.com/lox/evdash/internal/models"
	"github.com/lox/evdash/internal/store"
)

const (
	defaultRecordLimit = 1000
	maxRecordLimit     = 10000
)

// writeViewError maps pipeline errors onto status codes.
func writeViewError(w http.ResponseWriter, err error) {
	var bad *BadFilterError
	if errors.As(err, &bad) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: bad.Error()})
		return
	}
	writeDatasetError(w, err)
}

func (s *Server) handleAPIOptions(w http.ResponseWriter, r *http.Request) {
	ds, err := s.cache.Get(r.Context())
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Options  filter.Options `json:"options"`
		Defaults filter.Summary `json:"defaults"`
	}{
		Options:  filter.OptionsFor(ds),
		Defaults: filter.Defaults(ds, s.cfg.Defaults).Summary(),
	})
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildDashboard(r.Context(), "dashboard", r.URL.Query())
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAPIInsights(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildDashboard(r.Context(), "insights", r.URL.Query())
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Insights  insight.Set `json:"insights"`
		Sentences []string    `json:"sentences"`
		Message   string      `json:"message,omitempty"`
	}{data.Insights, data.Sentences, data.Message})
}

func (s *Server) handleAPINarrative(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildDashboard(r.Context(), "narrative", r.URL.Query())
	if err != nil {
		writeViewError(w, err)
		return
	}
	text, err := s.narrator.Narrate(r.Context(), data.Insights)
	if err != nil {
		log.Printf("api: narrate: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"narrative": text})
}

func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecordLimit)
	}

	_, _, v, err := s.filteredView(r.Context(), r.URL.Query())
	if err != nil {
		writeViewError(w, err)
		return
	}

	records := v.Records
	if len(records) > limit {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, struct {
		Total   int             `json:"total"`
		Records []models.Record `json:"records"`
	}{v.Len(), records})
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	_, _, v, err := s.filteredView(r.Context(), r.URL.Query())
	if err != nil {
		writeViewError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, v); err != nil {
		log.Printf("api: export: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	metrics.ExportsTotal.Inc()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(time.Now())+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleAPIImports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.Import{})
		return
	}
	imports, err := s.store.ListImports(r.Context())
	if err != nil {
		log.Printf("api: list imports: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if imports == nil {
		imports = []store.Import{}
	}
	writeJSON(w, http.StatusOK, imports)
}

func (s *Server) handleAPIReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.cache.Refresh(r.Context())
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": ds.Source, "records": ds.Len()})
}
