// Package server exposes the analysis pipeline over HTTP: submit documents
// for checking, and browse persisted run history.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/4tyone/pyrethrum/internal/model"
	"github.com/4tyone/pyrethrum/internal/pipeline"
	"github.com/4tyone/pyrethrum/internal/store"
)

// maxBodyBytes caps accepted document size; serialized ASTs get large but
// anything past this is almost certainly not a real document.
const maxBodyBytes = 16 << 20

// Server handles HTTP analysis requests.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.Store // nil disables the runs endpoints
	limiter  *rate.Limiter
}

// New creates a Server. ratePerSecond/burst bound the global request rate;
// zero values disable throttling.
func New(p *pipeline.Pipeline, st store.Store, ratePerSecond float64, burst int) *Server {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Server{pipeline: p, store: st, limiter: limiter}
}

// Router builds the chi router with CORS, request logging, and throttling.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(s.throttle)

	r.Get("/health", s.handleHealth)
	r.Post("/v1/check", s.handleCheck)
	if s.store != nil {
		r.Get("/v1/runs", s.handleListRuns)
		r.Get("/v1/runs/{id}", s.handleGetRun)
	}
	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return
	}

	result, err := s.pipeline.Analyze(r.Context(), body)
	if err != nil {
		zap.L().Info("document rejected", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		File:     q.Get("file"),
		Language: q.Get("language"),
	}
	if status := q.Get("status"); status != "" {
		filter.Status = model.RunStatus(status)
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
