// Package dashboard serves the browser UI and the JSON API backing it.
package dashboard

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ecolyze/ecolyze/internal/model"
	"github.com/ecolyze/ecolyze/internal/store"
)

// Analyzer is the subset of the pipeline the dashboard invokes.
type Analyzer interface {
	Run(ctx context.Context, year int, withForecast bool) (*model.AnalysisResult, error)
	Forecast(ctx context.Context) ([]model.ForecastRow, error)
}

// Options configures the dashboard.
type Options struct {
	MinYear         int
	MaxYear         int
	ForecastCountry string
	ForecastMinYear int
}

// Server holds the dashboard dependencies.
type Server struct {
	analyzer Analyzer
	store    store.Store // nil disables run history
	opts     Options
	page     *template.Template
}

// New creates a dashboard Server.
func New(analyzer Analyzer, st store.Store, opts Options) *Server {
	return &Server{
		analyzer: analyzer,
		store:    st,
		opts:     opts,
		page:     template.Must(template.New("index").Parse(indexHTML)),
	}
}

// Router builds the chi router for the dashboard.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Post("/api/forecast", s.handleForecast)
	r.Get("/api/runs", s.handleRuns)

	return r
}

type pageData struct {
	Years           []int
	ForecastCountry string
	ForecastMinYear int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	years := make([]int, 0, s.opts.MaxYear-s.opts.MinYear+1)
	for y := s.opts.MinYear; y <= s.opts.MaxYear; y++ {
		years = append(years, y)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, pageData{
		Years:           years,
		ForecastCountry: s.opts.ForecastCountry,
		ForecastMinYear: s.opts.ForecastMinYear,
	}); err != nil {
		zap.L().Error("dashboard: render index", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year     int  `json:"year"`
		Forecast bool `json:"forecast"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Year < s.opts.MinYear || req.Year > s.opts.MaxYear {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	// Synchronous by design: the response is the completed analysis.
	result, err := s.analyzer.Run(r.Context(), req.Year, req.Forecast)
	if err != nil {
		zap.L().Error("dashboard: analysis failed", zap.Int("year", req.Year), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	rows, err := s.analyzer.Forecast(r.Context())
	if err != nil {
		zap.L().Error("dashboard: forecast failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"forecast": rows})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []model.Run{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		zap.L().Error("dashboard: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("dashboard: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
