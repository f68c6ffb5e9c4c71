package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/evdash/internal/config"
	"github.com/lox/evdash/internal/ingest"
	"github.com/lox/evdash/internal/insight"
	"github.com/lox/evdash/internal/store"
)

type Server struct {
	cache    *ingest.Cache
	store    *store.Store
	cfg      config.Config
	port     string
	tmpl     *template.Template
	narrator insight.Narrator
}

// NewServer builds the HTTP server. st may be nil when the dataset is read
// straight from a file or URL.
func NewServer(cache *ingest.Cache, st *store.Store, cfg config.Config, port string) *Server {
	var narrator insight.Narrator = insight.TemplateNarrator{}
	if cfg.Narrative.Provider == "openai" {
		if n, err := insight.NewOpenAINarrator(cfg.Narrative.Model); err != nil {
			log.Printf("Narrative generation disabled: %v", err)
		} else {
			narrator = n
		}
	}

	return &Server{
		cache:    cache,
		store:    st,
		cfg:      cfg,
		port:     port,
		tmpl:     newTemplates(),
		narrator: narrator,
	}
}

// SetNarrator replaces the narrative writer.
func (s *Server) SetNarrator(n insight.Narrator) {
	s.narrator = n
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/options", s.handleAPIOptions).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleAPIDashboard).Methods(http.MethodGet)
	api.HandleFunc("/insights", s.handleAPIInsights).Methods(http.MethodGet)
	api.HandleFunc("/narrative", s.handleAPINarrative).Methods(http.MethodGet)
	api.HandleFunc("/records", s.handleAPIRecords).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", s.handleAPIExport).Methods(http.MethodGet)
	api.HandleFunc("/imports", s.handleAPIImports).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.handleAPIReload).Methods(http.MethodPost)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.ExposedHeaders([]string{requestIDHeader, "Content-Disposition"}),
	)(h)
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.LoggingHandler(log.Writer(), h)
	return h
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// SetupInstructions explain how to make a dataset available.
var SetupInstructions = []string{
	"Start the server with --dataset pointing at the vehicle population CSV (a path, http(s):// or ftp:// URL),",
	"or run `evdash import <location>` once to store a snapshot in the database.",
	"The CSV needs the columns Model Year, State, Make, Model and Electric Vehicle Type;",
	"City, Clean Alternative Fuel Vehicle (CAFV) Eligibility, Electric Range and Base MSRP are used when present.",
}

type errorResponse struct {
	Error string   `json:"error"`
	Setup []string `json:"setup,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// writeDatasetError reports a failed dataset load. A missing dataset is a
// setup problem, not a server fault.
func writeDatasetError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrNoDataset) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Setup: SetupInstructions})
		return
	}
	log.Printf("api: load dataset: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
