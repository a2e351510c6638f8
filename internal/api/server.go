// Package api exposes the aircraft state store over HTTP: a range
// query, a single-aircraft lookup, a status overview and a websocket
// live stream. It is a thin projection layer; every privacy and
// freshness rule lives in the store.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/ogn-scope/internal/ingest"
	"github.com/unklstewy/ogn-scope/internal/store"
)

// Config configures the API server.
type Config struct {
	// AllowedOrigins is the CORS origin whitelist; empty allows any
	AllowedOrigins []string

	// RequestTimeout bounds handler execution (default: 30 seconds)
	RequestTimeout time.Duration

	// Version is reported on the status endpoint
	Version string
}

// Server is the HTTP query API over a store, with ingestion statistics
// from the ingestor.
type Server struct {
	router  *chi.Mux
	store   *store.Store
	ingest  *ingest.Ingestor
	log     *slog.Logger
	cfg     Config
	started time.Time
}

// NewServer creates the API server and mounts its routes.
func NewServer(st *store.Store, ing *ingest.Ingestor, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router:  chi.NewRouter(),
		store:   st,
		ingest:  ing,
		log:     logger,
		cfg:     cfg,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft/near/{lat}/{lon}/{radius}", s.handleNear)
		r.Get("/aircraft/ws", s.handleLiveStream)
		r.Get("/aircraft/{address}", s.handleLookup)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// handleNear serves the range query:
// GET /api/v1/aircraft/near/{lat}/{lon}/{radius} with decimal degrees
// and kilometers. Zero matches is 200 with an empty array.
func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
	lon, err2 := strconv.ParseFloat(chi.URLParam(r, "lon"), 64)
	radius, err3 := strconv.ParseFloat(chi.URLParam(r, "radius"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		respondError(w, http.StatusBadRequest, "latitude, longitude and radius must be numbers")
		return
	}

	now := time.Now().UTC()
	results, err := s.store.Query(lat, lon, radius, now)
	if err != nil {
		var qErr *store.InvalidQueryError
		if errors.As(err, &qErr) {
			respondError(w, http.StatusBadRequest, qErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	views := make([]AircraftStateView, 0, len(results))
	for _, res := range results {
		views = append(views, viewFromResult(res, now))
	}
	respondJSON(w, http.StatusOK, views)
}

// handleLookup serves a single aircraft by device address. Unknown,
// stale and privacy-filtered aircraft are indistinguishable: all 404.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	now := time.Now().UTC()
	rep, ok := s.store.Lookup(address, now)
	if !ok {
		respondError(w, http.StatusNotFound, "aircraft not found")
		return
	}
	respondJSON(w, http.StatusOK, viewFromReport(rep, now))
}

// statusResponse is the status overview shape.
type statusResponse struct {
	Version        string          `json:"version"`
	UptimeSeconds  float64         `json:"uptime_seconds"`
	TransportState string          `json:"transport_state"`
	Server         string          `json:"server"`
	TrackedCount   int             `json:"tracked_count"`
	Ingest         ingest.Counters `json:"ingest"`
}

// handleStatus serves the process overview.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:       s.cfg.Version,
		UptimeSeconds: time.Since(s.started).Seconds(),
		TrackedCount:  s.store.Len(),
	}
	if s.ingest != nil {
		resp.TransportState = s.ingest.TransportState()
		resp.Server = s.ingest.ServerAddr()
		resp.Ingest = s.ingest.Counters()
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
