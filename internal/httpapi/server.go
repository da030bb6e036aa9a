// Package httpapi exposes a read-only ops surface: health, recent
// activity and metrics. Store management stays out of band.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"storewatch/internal/httpapi/middleware"
	"storewatch/internal/observability"
	"storewatch/internal/repo"
)

const defaultListLimit = 50

type Server struct {
	Logger  *zap.Logger
	Stores  repo.StoreRepo
	Runs    repo.RunRepo
	Alerts  repo.AlertRepo
	Metrics *observability.Metrics

	// RateLimitPerMin throttles per client IP; zero disables.
	RateLimitPerMin int
}

func NewServer(l *zap.Logger, stores repo.StoreRepo, runs repo.RunRepo,
	alerts repo.AlertRepo, metrics *observability.Metrics) *Server {
	return &Server{Logger: l, Stores: stores, Runs: runs, Alerts: alerts, Metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.RateLimitPerMin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/stores", s.handleListStores)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/alerts", s.handleListAlerts)

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	return r
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.Stores.ListActive(r.Context())
	if err != nil {
		s.Logger.Warn("store_list_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stores)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs.Recent(r.Context(), listLimit(r))
	if err != nil {
		s.Logger.Warn("run_list_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.Alerts.Recent(r.Context(), listLimit(r))
	if err != nil {
		s.Logger.Warn("alert_list_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, alerts)
}

func listLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return defaultListLimit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
